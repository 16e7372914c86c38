package avatar

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestUploadPutsObjectAndReturnsURL(t *testing.T) {
	putter := &fakePutter{}
	s := &S3{
		cfg:    S3Config{Bucket: "avatars", Endpoint: "http://minio:9000/", KeyPrefix: "contacts"},
		client: putter,
	}

	url, err := s.Upload(context.Background(), "alice", []byte("png-bytes"), "image/png")
	require.NoError(t, err)

	require.Equal(t, "avatars", aws.ToString(putter.in.Bucket))
	key := aws.ToString(putter.in.Key)
	require.True(t, strings.HasPrefix(key, "contacts/alice-"), key)
	require.Equal(t, "image/png", aws.ToString(putter.in.ContentType))
	require.Equal(t, int64(9), aws.ToInt64(putter.in.ContentLength))
	require.Equal(t, []byte("png-bytes"), putter.body)
	require.Equal(t, "http://minio:9000/avatars/"+key, url)
}

func TestUploadUsesPublicBaseURL(t *testing.T) {
	s := &S3{
		cfg:    S3Config{Bucket: "avatars", PublicBaseURL: "https://cdn.example.com/", KeyPrefix: "contacts"},
		client: &fakePutter{},
	}
	url, err := s.Upload(context.Background(), "bob", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://cdn.example.com/contacts/bob-"), url)
}

func TestUploadKeysAreUnique(t *testing.T) {
	s := &S3{cfg: S3Config{Bucket: "b", KeyPrefix: "contacts"}, client: &fakePutter{}}
	a, err := s.Upload(context.Background(), "alice", []byte("1"), "image/png")
	require.NoError(t, err)
	b, err := s.Upload(context.Background(), "alice", []byte("1"), "image/png")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestUploadErrors(t *testing.T) {
	boom := errors.New("access denied")
	s := &S3{cfg: S3Config{Bucket: "b"}, client: &fakePutter{err: boom}}

	_, err := s.Upload(context.Background(), "alice", []byte("x"), "image/png")
	require.ErrorIs(t, err, boom)

	_, err = s.Upload(context.Background(), "alice", nil, "image/png")
	require.Error(t, err)
}

func TestNewS3(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	defer func() { loadDefaultAWSConfig = origLoad }()

	var loaded bool
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		loaded = true
		require.Len(t, optFns, 2)
		return aws.Config{Region: "us-east-1"}, nil
	}

	s, err := NewS3(context.Background(), S3Config{
		Bucket:    "avatars",
		Region:    "us-east-1",
		Endpoint:  "http://minio:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		PathStyle: true,
	})
	require.NoError(t, err)
	require.True(t, loaded)
	require.Equal(t, "contacts", s.cfg.KeyPrefix)

	_, err = NewS3(context.Background(), S3Config{})
	require.Error(t, err)

	loadDefaultAWSConfig = func(context.Context, ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}
	_, err = NewS3(context.Background(), S3Config{Bucket: "avatars"})
	require.Error(t, err)
}

func TestGravatar(t *testing.T) {
	// md5("myemailaddress@example.com")
	want := "https://www.gravatar.com/avatar/0bc83cb571cd1c50ba6f3e8a78ef1346?d=identicon"
	require.Equal(t, want, Gravatar("  MyEmailAddress@example.com "))
}
