// Package archive uploads finished reels to S3-compatible storage.
package archive

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"

	"github.com/keagan/gyroreel/internal/config"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Uploader puts run artifacts into one bucket
type Uploader struct {
	logger zerolog.Logger
	client *miniogo.Client
	bucket string
	prefix string
}

func New(logger zerolog.Logger, cfg config.ArchiveConfig) (*Uploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("archive endpoint and bucket are required")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Uploader{
		logger: logger.With().Str("component", "archive").Logger(),
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.bucket, err)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", u.bucket, err)
		}
	}
	return nil
}

// Upload stores files under <prefix>/<runID>/ and returns their object keys
func (u *Uploader) Upload(ctx context.Context, runID string, files ...string) ([]string, error) {
	if err := u.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := ObjectKey(u.prefix, runID, file)
		info, err := u.client.FPutObject(ctx, u.bucket, key, file, miniogo.PutObjectOptions{
			ContentType: contentType(file),
		})
		if err != nil {
			return keys, fmt.Errorf("upload %s: %w", file, err)
		}

		u.logger.Info().
			Str("bucket", u.bucket).
			Str("key", key).
			Int64("bytes", info.Size).
			Msg("uploaded")
		keys = append(keys, key)
	}
	return keys, nil
}

// ObjectKey names the object a local file is stored under
func ObjectKey(prefix, runID, file string) string {
	return path.Join(prefix, runID, filepath.Base(file))
}

func contentType(file string) string {
	switch ext := filepath.Ext(file); ext {
	case ".mp4", ".MP4":
		return "video/mp4"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
