package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	defaultTimeout  = 30 * time.Second
	transferTimeout = 10 * time.Minute
)

// S3Storage хранит объекты в S3-совместимом бакете
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage создает клиента и проверяет доступность бакета
func NewS3Storage(conf *S3Config) (*S3Storage, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: accessKeyID, secretAccessKey, and bucket are required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(conf.Endpoint),
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	storage := &S3Storage{
		client: client,
		bucket: conf.Bucket,
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := storage.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return storage, nil
}

func (s *S3Storage) Upload(ctx context.Context, key string, data io.Reader, size int64) error {
	if key == "" || data == nil {
		return fmt.Errorf("key and data are required")
	}

	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          data,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	return nil
}

func (s *S3Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("object not found: %s", key)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return result.Body, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// Отсутствующий объект считаем уже удаленным
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("failed to check object existence: %w", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}
