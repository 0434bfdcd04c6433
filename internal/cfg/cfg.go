package cfg

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/log"
)

// EnvPrefix is prepended to upper-cased flag names to form env keys.
const EnvPrefix = "FILECACHE_"

// Content sources.
const (
	SourceDir = "dir"
	SourceS3  = "s3"
	SourceSSM = "ssm"
)

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	HTTPPort        int
	AdminPort       int
	ShutdownTimeout time.Duration

	EnablePprof     bool
	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string
	EnableTracing   bool
	OTLPEndpoint    string
	TraceSample     float64

	RecheckDelay time.Duration
	NeverRecheck bool

	Source    string
	RootDir   string
	S3Bucket  string
	S3Prefix  string
	SSMPrefix string
	AWSRegion string

	RateLimit        float64
	RateBurst        int
	TrustedProxyHops int

	ReadyProbe string
}

// Register binds all config fields to fs with defaults inline.
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", 15*time.Second, "graceful shutdown budget")

	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")

	fs.DurationVar(&c.RecheckDelay, "recheck-delay", time.Second, "minimum time between fingerprint checks of a resource")
	fs.BoolVar(&c.NeverRecheck, "never-recheck", false, "never re-fingerprint a resource once cached (until cleared)")

	fs.StringVar(&c.Source, "source", SourceDir, "content source: dir|s3|ssm (s3/ssm calls run under the cache lock, so one slow request delays all others)")
	fs.StringVar(&c.RootDir, "root-dir", "./public", "directory to serve when -source=dir")
	fs.StringVar(&c.S3Bucket, "s3-bucket", "", "bucket to serve when -source=s3")
	fs.StringVar(&c.S3Prefix, "s3-prefix", "", "key prefix inside -s3-bucket")
	fs.StringVar(&c.SSMPrefix, "ssm-prefix", "", "parameter path prefix when -source=ssm (starts with /)")
	fs.StringVar(&c.AWSRegion, "aws-region", "", "AWS region override (default from the environment)")

	fs.Float64Var(&c.RateLimit, "rate-limit", 50, "per-client requests per second")
	fs.IntVar(&c.RateBurst, "rate-burst", 100, "per-client burst size")
	fs.IntVar(&c.TrustedProxyHops, "trusted-proxy-hops", 0, "reverse proxies in front of the server whose X-Forwarded-For is trusted (0..8)")

	fs.StringVar(&c.ReadyProbe, "ready-probe", "index.html", "resource fingerprinted by the readiness probe (missing counts as ready)")
}

// CacheDelay is the recheck window for filecache.Options.
func (c App) CacheDelay() time.Duration {
	if c.NeverRecheck {
		return filecache.NeverRecheck
	}
	return c.RecheckDelay
}

// FillFromEnv sets any flag not explicitly passed on the CLI from the
// environment. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Validate returns every invalid field joined, or nil.
func Validate(c App) error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive (got %s)", c.ShutdownTimeout))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL: %w", err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, errors.New("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, errors.New("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	if c.RecheckDelay < 0 {
		errs = append(errs, fmt.Errorf("RECHECK_DELAY must be >= 0 (got %s), use NEVER_RECHECK to disable rechecks", c.RecheckDelay))
	}

	switch c.Source {
	case SourceDir:
		if c.RootDir == "" {
			errs = append(errs, errors.New("ROOT_DIR required when SOURCE=dir"))
		}
	case SourceS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET required when SOURCE=s3"))
		}
	case SourceSSM:
		if c.SSMPrefix == "" {
			errs = append(errs, errors.New("SSM_PREFIX required when SOURCE=ssm"))
		} else if !strings.HasPrefix(c.SSMPrefix, "/") {
			errs = append(errs, fmt.Errorf("SSM_PREFIX must start with / (got %q)", c.SSMPrefix))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid SOURCE %q (must be dir|s3|ssm)", c.Source))
	}

	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT must be > 0 (got %g)", c.RateLimit))
	}
	if c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_BURST must be >= 1 (got %d)", c.RateBurst))
	}
	if c.TrustedProxyHops < 0 || c.TrustedProxyHops > 8 {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXY_HOPS must be 0..8 (got %d)", c.TrustedProxyHops))
	}
	if c.ReadyProbe == "" || !fs.ValidPath(c.ReadyProbe) {
		errs = append(errs, fmt.Errorf("READY_PROBE must be a relative resource name (got %q)", c.ReadyProbe))
	}

	return errors.Join(errs...)
}
