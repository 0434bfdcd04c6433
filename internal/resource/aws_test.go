package resource

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// fakes

type fakeObject struct {
	body     string
	etag     string
	modified time.Time
}

type fakeS3 struct {
	objects map[string]fakeObject
	err     error
	heads   []string
	gets    []string
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.heads = append(f.heads, key)
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.objects[key]
	if !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ETag:          aws.String(o.etag),
		LastModified:  aws.Time(o.modified),
		ContentLength: aws.Int64(int64(len(o.body))),
	}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.gets = append(f.gets, key)
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.objects[key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(o.body))}, nil
}

type fakeSSM struct {
	params  map[string]ssmtypes.Parameter
	err     error
	decrypt []bool
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.decrypt = append(f.decrypt, aws.ToBool(in.WithDecryption))
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.params[aws.ToString(in.Name)]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &p}, nil
}

// S3

func TestNewS3_Validation(t *testing.T) {
	if _, err := NewS3(S3Options{Bucket: "b"}); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := NewS3(S3Options{Client: &fakeS3{}}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestS3_FingerprintAndRead(t *testing.T) {
	mod := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := &fakeS3{objects: map[string]fakeObject{
		"site/index.html": {body: "<h1>hi</h1>", etag: `"abc"`, modified: mod},
	}}
	a, err := NewS3(S3Options{Client: f, Bucket: "b", Prefix: "site"})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	ctx := context.Background()

	fp, err := a.Fingerprint(ctx, "index.html")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	want := ObjectFingerprint{ETag: `"abc"`, LastModified: mod, Size: 11}
	if !fp.Equal(want) {
		t.Fatalf("fingerprint = %+v, want %+v", fp, want)
	}

	b, err := a.Read(ctx, "index.html")
	if err != nil || string(b) != "<h1>hi</h1>" {
		t.Fatalf("Read = (%q, %v)", b, err)
	}
	if len(f.heads) != 1 || f.heads[0] != "site/index.html" || len(f.gets) != 1 {
		t.Fatalf("heads=%v gets=%v", f.heads, f.gets)
	}
}

func TestS3_ETagChange(t *testing.T) {
	a := ObjectFingerprint{ETag: `"1"`, Size: 3}
	b := ObjectFingerprint{ETag: `"2"`, Size: 3}
	if a.Equal(b) {
		t.Fatal("different ETags should not be equal")
	}
}

func TestS3_NotFound(t *testing.T) {
	a, _ := NewS3(S3Options{Client: &fakeS3{}, Bucket: "b"})
	ctx := context.Background()

	if _, err := a.Fingerprint(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fingerprint err = %v, want ErrNotFound", err)
	}
	if _, err := a.Read(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read err = %v, want ErrNotFound", err)
	}
}

func TestS3_OtherErrorIsNotNotFound(t *testing.T) {
	boom := errors.New("throttled")
	a, _ := NewS3(S3Options{Client: &fakeS3{err: boom}, Bucket: "b"})

	_, err := a.Fingerprint(context.Background(), "x")
	if !errors.Is(err, boom) || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want throttled and not ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "s3://b/x") {
		t.Fatalf("err = %q, want object location", err)
	}
}

func TestS3_InvalidName(t *testing.T) {
	f := &fakeS3{}
	a, _ := NewS3(S3Options{Client: f, Bucket: "b", Prefix: "site"})
	if _, err := a.Read(context.Background(), "../other/x"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}
	if len(f.gets) != 0 {
		t.Fatal("invalid name should not reach the client")
	}
}

// SSM

func TestNewSSM_Validation(t *testing.T) {
	if _, err := NewSSM(nil, "/p"); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := NewSSM(&fakeSSM{}, "relative"); err == nil {
		t.Fatal("expected error for relative prefix")
	}
}

func TestSSM_FingerprintWithoutDecryption(t *testing.T) {
	f := &fakeSSM{params: map[string]ssmtypes.Parameter{
		"/fc/motd": {Value: aws.String("hello"), Version: 3},
	}}
	a, err := NewSSM(f, "/fc")
	if err != nil {
		t.Fatalf("NewSSM: %v", err)
	}
	ctx := context.Background()

	fp, err := a.Fingerprint(ctx, "motd")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if !fp.Equal(VersionFingerprint{Version: 3}) {
		t.Fatalf("fingerprint = %+v, want version 3", fp)
	}
	b, err := a.Read(ctx, "motd")
	if err != nil || string(b) != "hello" {
		t.Fatalf("Read = (%q, %v)", b, err)
	}
	if len(f.decrypt) != 2 || f.decrypt[0] || !f.decrypt[1] {
		t.Fatalf("decrypt flags = %v, want [false true]", f.decrypt)
	}
}

func TestSSM_NotFound(t *testing.T) {
	a, _ := NewSSM(&fakeSSM{}, "/fc")
	if _, err := a.Fingerprint(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSSM_VersionBump(t *testing.T) {
	if (VersionFingerprint{Version: 1}).Equal(VersionFingerprint{Version: 2}) {
		t.Fatal("different versions should not be equal")
	}
}
