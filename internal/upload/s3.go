package upload

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"blocknotes/internal/ident"
)

// S3API is the part of *s3.Client the uploader uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config describes an S3-compatible bucket. Endpoint is optional and
// targets R2, MinIO and similar services.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL is the base that objects are served from.
	PublicURL string
	Prefix    string
}

// S3Uploader puts images into a bucket.
type S3Uploader struct {
	client    S3API
	bucket    string
	publicURL string
	prefix    string
	ids       ident.Generator
}

// NewS3Client builds an S3 client. Static credentials are used when both keys
// are set, the default AWS chain otherwise.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3Uploader(client S3API, cfg S3Config, ids ident.Generator) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 uploader: bucket required")
	}
	if cfg.PublicURL == "" {
		return nil, fmt.Errorf("s3 uploader: public url required")
	}
	if ids == nil {
		ids = ident.UUID
	}
	return &S3Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		prefix:    strings.Trim(cfg.Prefix, "/"),
		ids:       ids,
	}, nil
}

func (u *S3Uploader) key(name string) string {
	if u.prefix == "" {
		return name
	}
	return u.prefix + "/" + name
}

func (u *S3Uploader) Upload(ctx context.Context, data []byte) (Result, error) {
	m, err := DetectImage(data)
	if err != nil {
		return Result{}, err
	}
	key := u.key(u.ids() + m.Extension())
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(m.String()),
	})
	if err != nil {
		return Result{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return Result{Src: joinURL(u.publicURL, key), ContentType: m.String()}, nil
}

func (u *S3Uploader) objectKey(src string) (string, bool) {
	key, ok := strings.CutPrefix(src, u.publicURL+"/")
	if !ok || key == "" {
		return "", false
	}
	if u.prefix != "" && !strings.HasPrefix(key, u.prefix+"/") {
		return "", false
	}
	return key, true
}

func (u *S3Uploader) Owns(src string) bool {
	_, ok := u.objectKey(src)
	return ok
}

func (u *S3Uploader) Delete(ctx context.Context, src string) error {
	key, ok := u.objectKey(src)
	if !ok {
		return ErrNotOwned
	}
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
