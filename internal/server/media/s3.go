package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/threads/internal/logging"
	"github.com/dmitrijs2005/threads/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectClient {
		return s3.NewFromConfig(cfg, optFns...)
	}

	now = time.Now
)

// objectClient is the part of *s3.Client the store needs.
type objectClient interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps images in a single bucket of an S3-compatible host (MinIO,
// AWS S3).
type S3Store struct {
	client    objectClient
	bucket    string
	publicURL string
	logger    logging.Logger
}

// NewS3Store builds a store from the S3 settings in cfg.
func NewS3Store(ctx context.Context, cfg *config.Config, logger logging.Logger) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, cfg, logger), nil
}

func newS3Store(client objectClient, cfg *config.Config, logger logging.Logger) *S3Store {
	publicURL := cfg.S3PublicURL
	if publicURL == "" {
		publicURL = strings.TrimSuffix(cfg.S3BaseEndpoint, "/") + "/" + cfg.S3Bucket
	}
	return &S3Store{
		client:    client,
		bucket:    cfg.S3Bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logger.With("module", "media"),
	}
}

// storageKey returns a fresh object key for an image with extension ext.
func storageKey(ext string) string {
	d := now()
	return fmt.Sprintf("images/%d/%d/%d/%v.%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *S3Store) Upload(ctx context.Context, payload string) (string, error) {
	raw, contentType, ext, err := decodePayload(payload)
	if err != nil {
		return "", err
	}

	key := storageKey(ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(raw),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(raw))),
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	s.logger.Debug(ctx, "image uploaded", "key", key, "size", len(raw))
	return s.publicURL + "/" + key, nil
}

// Destroy removes the object behind url. URLs this store did not issue are
// ignored.
func (s *S3Store) Destroy(ctx context.Context, url string) error {
	key, ok := s.keyFromURL(url)
	if !ok {
		s.logger.Debug(ctx, "skipping foreign image", "url", url)
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

func (s *S3Store) keyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
