package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicBaseURL is what object URLs are composed from; defaults to
	// Endpoint when empty.
	PublicBaseURL string
}

// S3Store keeps attachments in an S3-compatible bucket (MinIO in dev).
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = cfg.Endpoint
	}

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func storageKey(localPath string, kind Kind) string {
	ext := path.Ext(localPath)
	if kind == KindVideo {
		return fmt.Sprintf("videos/%s%s", uuid.New(), ext)
	}
	return fmt.Sprintf("chat/%s%s", uuid.New(), ext)
}

func (s *S3Store) Upload(ctx context.Context, localPath, contentType string, kind Kind) (Upload, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return Upload{}, fmt.Errorf("opening upload file: %w", err)
	}
	defer file.Close()

	key := storageKey(localPath, kind)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Upload{}, fmt.Errorf("uploading object: %w", err)
	}

	return Upload{
		URL:      fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key),
		PublicID: key,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, publicID string, kind Kind) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return ErrNotFound
		}
		return fmt.Errorf("checking object: %w", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}
