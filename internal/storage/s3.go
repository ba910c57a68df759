package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oggyb/matchfeed/internal/config"
)

// S3Store writes blobs to an S3 bucket.
type S3Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	baseURL string
}

// NewS3Store loads AWS credentials from the default chain.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3StoreFromConfig(awsCfg, cfg), nil
}

// NewS3StoreFromConfig builds the store from an already resolved aws.Config.
// A custom S3_ENDPOINT switches to path-style addressing.
func NewS3StoreFromConfig(awsCfg aws.Config, cfg *config.Config) *S3Store {
	endpoint := cfg.Storage.S3Endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimRight(cfg.Storage.S3PublicBaseURL, "/")
	if baseURL == "" {
		if endpoint != "" {
			baseURL = strings.TrimRight(endpoint, "/") + "/" + cfg.Storage.S3Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Storage.S3Bucket, awsCfg.Region)
		}
	}

	return &S3Store{
		client:  client,
		bucket:  cfg.Storage.S3Bucket,
		prefix:  cfg.Storage.S3Prefix,
		baseURL: baseURL,
	}
}

func (s *S3Store) Save(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	// Buffer the upload so the SDK can sign a seekable payload.
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	key := s.prefix + name
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3Store) Remove(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
