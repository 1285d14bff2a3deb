package storage

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dmoshi/face-count-service/internal/imaging"
)

// S3Store uploads annotated frames as JPEG objects and returns the
// deterministic public URL for the bucket/region pair.
type S3Store struct {
	client *miniogo.Client
	bucket string
	region string
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *S3Store) SaveAnnotated(ctx context.Context, frame *imaging.Frame, objectKey, contentType string) (string, error) {
	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, frame.ToRGBA(), &jpeg.Options{Quality: 90}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, buf, int64(buf.Len()), miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload annotated image: %w", err)
	}

	return s.PublicURL(objectKey), nil
}

// PublicURL returns the well-known S3 URL form for an object key.
func (s *S3Store) PublicURL(objectKey string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, objectKey)
}
