package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/indieinfra/tgfile/config"
	"github.com/indieinfra/tgfile/storage/backend"
)

// Store keeps file bodies in S3 or any compatible service (R2, Backblaze,
// MinIO). The object key doubles as the backend file handle; message ids
// have no S3 counterpart and are always zero.
type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

var newMinioClient = func(endpoint string, opts *minio.Options) (s3Client, error) {
	return minio.New(endpoint, opts)
}

const presignExpiry = 1 * time.Hour

type Store struct {
	client s3Client
	bucket string
	prefix string
}

func New(cfg *config.S3Backend) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("s3 backend config is nil")
	}

	region := strings.TrimSpace(cfg.Region)
	if strings.EqualFold(region, "auto") {
		region = ""
	}

	endpointHost := strings.TrimSpace(cfg.Endpoint)
	if endpointHost == "" {
		if region == "" {
			endpointHost = "s3.amazonaws.com"
		} else {
			endpointHost = fmt.Sprintf("s3.%s.amazonaws.com", region)
		}
	} else {
		if parsed, err := url.Parse(endpointHost); err == nil && parsed.Host != "" {
			endpointHost = parsed.Host
		}
	}

	client, err := newMinioClient(endpointHost, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretKeyID, ""),
		Secure:       true,
		Region:       region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to verify s3 bucket %q: %w", cfg.Bucket, err)
	}

	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist or is not accessible", cfg.Bucket)
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *Store) Upload(ctx context.Context, r io.Reader, name, mime string, size int64) (*backend.UploadResult, error) {
	key := s.objectKey(name)

	opts := minio.PutObjectOptions{ContentType: mime}
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, opts); err != nil {
		return nil, fmt.Errorf("%w: put object: %v", backend.ErrUpload, err)
	}

	return &backend.UploadResult{FileID: key}, nil
}

func (s *Store) Resolve(ctx context.Context, fileID string) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, fileID, presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("%w: presign %q: %v", backend.ErrNotResolvable, fileID, err)
	}

	return signed.String(), nil
}

func (s *Store) Remove(ctx context.Context, fileID string, _ int64) error {
	if err := s.client.RemoveObject(ctx, s.bucket, fileID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete from s3 failed: %w", err)
	}

	return nil
}

// objectKey prefixes the stored name with a timestamp so repeated uploads
// of the same filename never collide.
func (s *Store) objectKey(name string) string {
	key := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), path.Base(name))
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	return key
}
