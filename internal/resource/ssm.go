package resource

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/xerrors"
)

// SSMAPI is the subset of *ssm.Client the SSM accessor uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// VersionFingerprint is the parameter version, which SSM bumps on every put.
type VersionFingerprint struct {
	Version int64
}

func (f VersionFingerprint) Equal(other filecache.Fingerprint) bool {
	o, ok := other.(VersionFingerprint)
	return ok && f.Version == o.Version
}

// SSM serves parameter values from Parameter Store. Names map to
// "prefix/name"; SecureString values are decrypted on read only.
type SSM struct {
	client SSMAPI
	prefix string
}

var _ filecache.Accessor = (*SSM)(nil)

// NewSSM creates an SSM accessor. prefix should start with "/" for
// hierarchical parameters.
func NewSSM(client SSMAPI, prefix string) (*SSM, error) {
	if client == nil {
		return nil, xerrors.New("ssm client is required")
	}
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		return nil, xerrors.Newf("ssm prefix %q must start with /", prefix)
	}
	return &SSM{client: client, prefix: prefix}, nil
}

func (a *SSM) get(ctx context.Context, name string, decrypt bool) (*types.Parameter, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	param := joinKey(a.prefix, name)
	out, err := a.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(decrypt),
	})
	if err != nil {
		var pnf *types.ParameterNotFound
		if errors.As(err, &pnf) {
			err = notFound(err)
		}
		return nil, xerrors.Wrapf(err, "get SSM parameter %s", param)
	}
	if out.Parameter == nil {
		return nil, xerrors.Newf("SSM parameter %s has no value", param)
	}
	return out.Parameter, nil
}

func (a *SSM) Fingerprint(ctx context.Context, name string) (filecache.Fingerprint, error) {
	p, err := a.get(ctx, name, false)
	if err != nil {
		return nil, err
	}
	return VersionFingerprint{Version: p.Version}, nil
}

func (a *SSM) Read(ctx context.Context, name string) ([]byte, error) {
	p, err := a.get(ctx, name, true)
	if err != nil {
		return nil, err
	}
	return []byte(aws.ToString(p.Value)), nil
}
