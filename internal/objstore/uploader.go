package objstore

import (
	"TrafficParser/internal/config"
	"TrafficParser/internal/model"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Uploader copies export files to an S3-compatible bucket.
type Uploader struct {
	client *minio.Client
	bucket string
	prefix string
	log    zerolog.Logger
}

// New creates an uploader. No request is made until Upload.
func New(cfg config.ObjectStorageConfig, log zerolog.Logger) (*Uploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, model.Configurationf("object storage needs an endpoint and a bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, model.Configurationf("invalid object storage endpoint %q: %v", cfg.Endpoint, err)
	}
	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		log:    log,
	}, nil
}

// ObjectKey is the key a local file is stored under: <prefix>/<export id>/<file name>.
func (u *Uploader) ObjectKey(exportID, localPath string) string {
	return path.Join(u.prefix, exportID, filepath.Base(localPath))
}

// Upload stores each file under the export's key prefix, creating the bucket
// when it does not exist yet. It returns the object keys in argument order.
func (u *Uploader) Upload(ctx context.Context, exportID string, localPaths ...string) ([]string, error) {
	location := fmt.Sprintf("s3://%s", u.bucket)
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return nil, model.NewPathError(model.ErrExport, location, fmt.Errorf("failed to check bucket: %w", err))
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, model.NewPathError(model.ErrExport, location, fmt.Errorf("failed to create bucket: %w", err))
		}
		u.log.Info().Str("bucket", u.bucket).Msg("Created bucket")
	}

	keys := make([]string, 0, len(localPaths))
	for _, p := range localPaths {
		if p == "" {
			continue
		}
		key := u.ObjectKey(exportID, p)
		info, err := u.client.FPutObject(ctx, u.bucket, key, p, minio.PutObjectOptions{ContentType: "application/json"})
		if err != nil {
			return keys, model.NewPathError(model.ErrExport, location+"/"+key, fmt.Errorf("failed to upload %s: %w", p, err))
		}
		u.log.Info().Str("bucket", u.bucket).Str("key", key).Int64("bytes", info.Size).Msg("Uploaded export file")
		keys = append(keys, key)
	}
	return keys, nil
}
