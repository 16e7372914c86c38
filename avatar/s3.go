// Package avatar stores avatar images in S3-compatible object storage and
// builds the Gravatar URL new identities start with.
package avatar

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Config locates the bucket. PublicBaseURL is the prefix avatars are
// served from; when empty the URL is built as <endpoint>/<bucket>/<key>.
type S3Config struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	KeyPrefix     string
	PathStyle     bool
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 implements goContacts.AvatarStorage.
type S3 struct {
	cfg    S3Config
	client putObjectAPI
}

// NewS3 builds an uploader with static credentials, the way MinIO and most
// S3-compatible services expect.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("avatar: S3 bucket is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "contacts"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("avatar: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return &S3{cfg: cfg, client: client}, nil
}

// Upload stores data under a fresh key for identityKey and returns its
// public URL. Earlier avatars are left in place.
func (s *S3) Upload(ctx context.Context, identityKey string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("avatar: empty image")
	}
	key := s.objectKey(identityKey)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=86400"),
	})
	if err != nil {
		return "", fmt.Errorf("avatar: put object: %w", err)
	}
	return s.publicURL(key), nil
}

func (s *S3) objectKey(identityKey string) string {
	return fmt.Sprintf("%s/%s-%s", s.cfg.KeyPrefix, url.PathEscape(identityKey), uuid.NewString())
}

func (s *S3) publicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
}

// Gravatar returns the identicon URL for email.
func Gravatar(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"
}
