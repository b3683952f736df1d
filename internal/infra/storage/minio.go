package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	publicBase string
}

// Options for New.
type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicBaseURL overrides the scheme://host/bucket prefix of returned URLs.
	PublicBaseURL string
}

// New buat koneksi MinIO dan pastikan bucket ada
func New(ctx context.Context, opt Options) (*Store, error) {
	cli, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.UseSSL,
		Region: opt.Region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, opt.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opt.Bucket, minio.MakeBucketOptions{Region: opt.Region}); err != nil {
			return nil, err
		}
	}

	base := opt.PublicBaseURL
	if base == "" {
		base = PublicBaseURL(cli.EndpointURL(), opt.Bucket)
	}
	return &Store{client: cli, bucketName: opt.Bucket, region: opt.Region, publicBase: strings.TrimRight(base, "/")}, nil
}

// Upload implementasi media.AssetStore
func (s *Store) Upload(ctx context.Context, localPath, key, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %v", media.ErrStorage, key, err)
	}
	// URL publik (bucket harus public-read), private butuh presigned URL
	return ObjectURL(s.publicBase, key), nil
}

// Ping dipakai health check
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s missing", s.bucketName)
	}
	return nil
}

func PublicBaseURL(endpoint *url.URL, bucket string) string {
	scheme := "http"
	host := ""
	if endpoint != nil {
		if endpoint.Scheme != "" {
			scheme = endpoint.Scheme
		}
		host = endpoint.Host
	}
	return fmt.Sprintf("%s://%s/%s", scheme, host, bucket)
}

func ObjectURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
