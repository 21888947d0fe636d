package utils

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3GetObjectAPI is the slice of the S3 client used for image sources
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	S3Client S3GetObjectAPI
	s3InitMu sync.Mutex
	S3Region string
)

// InitS3 initializes the S3 client
func InitS3(ctx context.Context) error {
	s3InitMu.Lock()
	defer s3InitMu.Unlock()
	if S3Client != nil {
		return nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(S3Region))
	if err != nil {
		return fmt.Errorf("unable to load SDK config, %v", err)
	}

	S3Client = s3.NewFromConfig(cfg)
	log.Debug().Str("region", S3Region).Msg("S3 Client Initialized")
	return nil
}

// ParseS3URI splits s3://bucket/key into its parts
func ParseS3URI(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("not an s3 uri: %s", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs bucket and key: %s", raw)
	}
	return u.Host, key, nil
}

// DownloadFromS3 reads an object, failing with ErrBodyTooLarge past maxBytes (0 means no limit).
func DownloadFromS3(ctx context.Context, bucket, key string, maxBytes int64) (*Download, error) {
	if S3Client == nil {
		if err := InitS3(ctx); err != nil {
			return nil, err
		}
	}

	out, err := S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	if maxBytes > 0 && out.ContentLength != nil && *out.ContentLength > maxBytes {
		return nil, ErrBodyTooLarge
	}

	body := io.Reader(out.Body)
	if maxBytes > 0 {
		body = io.LimitReader(out.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrBodyTooLarge
	}

	return &Download{
		Data:        data,
		ContentType: aws.ToString(out.ContentType),
		FinalURL:    fmt.Sprintf("s3://%s/%s", bucket, key),
	}, nil
}
