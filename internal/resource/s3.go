package resource

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/xerrors"
)

// S3API is the subset of *s3.Client the S3 accessor uses.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ObjectFingerprint identifies an object version by ETag, last modified
// time and size.
type ObjectFingerprint struct {
	ETag         string
	LastModified time.Time
	Size         int64
}

func (f ObjectFingerprint) Equal(other filecache.Fingerprint) bool {
	o, ok := other.(ObjectFingerprint)
	if !ok {
		return false
	}
	return f.ETag == o.ETag && f.Size == o.Size && f.LastModified.Equal(o.LastModified)
}

// S3Options configures an S3 accessor.
type S3Options struct {
	Client S3API
	Bucket string
	// Prefix is prepended to every name as "prefix/name".
	Prefix string
}

// S3 serves objects from a bucket. Fingerprints come from HeadObject, so a
// recheck costs one request and no body transfer.
type S3 struct {
	client S3API
	bucket string
	prefix string
}

var _ filecache.Accessor = (*S3)(nil)

// NewS3 creates an S3 accessor.
func NewS3(opts S3Options) (*S3, error) {
	if opts.Client == nil {
		return nil, xerrors.New("s3 client is required")
	}
	if opts.Bucket == "" {
		return nil, xerrors.New("s3 bucket is required")
	}
	return &S3{client: opts.Client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (a *S3) key(name string) string {
	return joinKey(a.prefix, name)
}

func (a *S3) Fingerprint(ctx context.Context, name string) (filecache.Fingerprint, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	key := a.key(name)
	out, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, a.wrap(err, "head", key)
	}
	return ObjectFingerprint{
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
		Size:         aws.ToInt64(out.ContentLength),
	}, nil
}

func (a *S3) Read(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	key := a.key(name)
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, a.wrap(err, "get", key)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read body s3://%s/%s", a.bucket, key)
	}
	return b, nil
}

func (a *S3) wrap(err error, op, key string) error {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		err = notFound(err)
	}
	return xerrors.Wrapf(err, "%s object s3://%s/%s", op, a.bucket, key)
}
