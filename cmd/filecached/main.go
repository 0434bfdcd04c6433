package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/filecache/internal/cfg"
	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/filehttp"
	"github.com/keithlinneman/filecache/internal/health"
	"github.com/keithlinneman/filecache/internal/httpmw"
	"github.com/keithlinneman/filecache/internal/opshttp"
	"github.com/keithlinneman/filecache/internal/ratelimit"
	"github.com/keithlinneman/filecache/internal/resource"

	"github.com/keithlinneman/filecache/internal/httpserver"
	"github.com/keithlinneman/filecache/internal/log"
	"github.com/keithlinneman/filecache/internal/metrics"
	"github.com/keithlinneman/filecache/internal/otelx"
	"github.com/keithlinneman/filecache/internal/prof"
	v "github.com/keithlinneman/filecache/internal/version"
)

const appName = "filecache"

// readyProbeTimeout bounds one readiness fingerprint of the content source.
const readyProbeTimeout = 2 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(appName, vi.String())
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Validate already checked both levels
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:               appName,
		Version:           vi.Version,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSON:              conf.LogJSON,
		IncludeErrorLinks: conf.IncludeErrorLinks,
		MaxErrorLinks:     conf.MaxErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"commit_date", vi.CommitDate,
		"build_id", vi.BuildId,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
		"source", conf.Source,
		"recheck_delay", conf.RecheckDelay,
		"never_recheck", conf.NeverRecheck,
		"rate_limit", conf.RateLimit,
		"rate_burst", conf.RateBurst,
		"trusted_proxy_hops", conf.TrustedProxyHops,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion(appName, "server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       appName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       appName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
			"build_id":  vi.BuildId,
			"source":    "go-agent",
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(conf.EnablePyroscope && err == nil)
	defer stopProf()

	// Insecure because the collector runs on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:    conf.EnableTracing,
		Endpoint:   conf.OTLPEndpoint,
		Insecure:   true,
		Sample:     conf.TraceSample,
		Service:    appName,
		Component:  "server",
		Version:    vi.Version,
		Attributes: map[string]string{"filecache.source": conf.Source},
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	acc, location, closeSource, err := openSource(ctx, conf)
	if err != nil {
		L.Error(ctx, err, "failed to open content source", "source", conf.Source)
		os.Exit(1)
	}
	defer closeSource()
	m.SetSource(conf.Source, location)
	L.Info(ctx, "content source opened", "source", conf.Source, "location", location)

	c, err := filecache.New(filecache.Options{
		RecheckDelay: conf.CacheDelay(),
		Accessor:     acc,
		Logger:       L,
		Metrics:      m.Cache(),
	})
	if err != nil {
		L.Error(ctx, err, "failed to create cache")
		os.Exit(1)
	}

	files, err := filehttp.New(filehttp.Options{
		Cache:  c,
		Logger: L,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create file handler")
		os.Exit(1)
	}
	defer files.Close()

	var gate health.ShutdownGate

	// not draining and the source answers a fingerprint in time
	readiness := health.All(
		gate.Probe(),
		health.Timeout(health.Source(acc, conf.ReadyProbe), readyProbeTimeout),
	)

	limiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.RateLimit, conf.RateBurst),
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied()
		}),
		// logged once per visitor until it is evicted
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
		ratelimit.WithOnCapacity(func() {
			m.IncRateLimitCapacity()
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
		}),
	)

	siteHTTPStop, err := httpserver.Start(ctx, httpserver.Options{
		Port:         conf.HTTPPort,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		Files:        files,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  limiter.Middleware,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedProxyHops},
		Logger:       L,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// admin listener must stay off public networks, it can clear the cache
	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		Cache:        c,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	go clearOnHangup(ctx, c, L)

	if err := notifySystemd(); err != nil {
		// systemd kills us after its start timeout if this mattered
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	<-ctx.Done()
	stop()

	L.Info(context.Background(), "shutdown signal received")
	gate.Set("draining")
	L.Info(context.Background(), "shutdown gate closed, draining", "drain", conf.ShutdownTimeout)

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.ShutdownTimeout):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.DefaultShutdownTimeout)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}
	stopProf()

	L.Info(context.Background(), "shutdown complete")
}

// openSource builds the accessor selected by conf.Source. location names it
// for logs and the source info metric.
func openSource(ctx context.Context, conf cfg.App) (filecache.Accessor, string, func() error, error) {
	noClose := func() error { return nil }

	if conf.Source == cfg.SourceDir {
		d, err := resource.OpenDir(conf.RootDir)
		if err != nil {
			return nil, "", noClose, err
		}
		return d, conf.RootDir, d.Close, nil
	}

	var loadOpts []func(*config.LoadOptions) error
	if conf.AWSRegion != "" {
		loadOpts = append(loadOpts, config.WithRegion(conf.AWSRegion))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, "", noClose, fmt.Errorf("load AWS config: %w", err)
	}

	switch conf.Source {
	case cfg.SourceS3:
		a, err := resource.NewS3(resource.S3Options{
			Client: s3.NewFromConfig(awsCfg),
			Bucket: conf.S3Bucket,
			Prefix: conf.S3Prefix,
		})
		if err != nil {
			return nil, "", noClose, err
		}
		return a, "s3://" + conf.S3Bucket + "/" + conf.S3Prefix, noClose, nil
	case cfg.SourceSSM:
		a, err := resource.NewSSM(ssm.NewFromConfig(awsCfg), conf.SSMPrefix)
		if err != nil {
			return nil, "", noClose, err
		}
		return a, "ssm:" + conf.SSMPrefix, noClose, nil
	}
	return nil, "", noClose, fmt.Errorf("unknown source %q", conf.Source)
}

// clearOnHangup clears the cache on every SIGHUP until ctx is done.
func clearOnHangup(ctx context.Context, c *filecache.Cache, L log.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := c.Clear(ctx); err != nil {
				L.Error(ctx, err, "cache clear on SIGHUP failed")
				continue
			}
			L.Info(ctx, "cache cleared on SIGHUP")
		}
	}
}

func notifySystemd() error {
	// systemd sets NOTIFY_SOCKET when the unit has Type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set, skipping systemd notify")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		conn.Close()
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
