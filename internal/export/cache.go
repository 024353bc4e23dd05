package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactCache stores rendered artifacts between requests. A miss is
// reported with ok=false and a nil error.
type ArtifactCache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// CacheConfig describes an S3-compatible bucket.
type CacheConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectCache keeps artifacts in an S3-compatible bucket.
type ObjectCache struct {
	client *minio.Client
	bucket string
}

// NewObjectCache connects to the bucket, creating it when missing.
func NewObjectCache(ctx context.Context, cfg CacheConfig) (*ObjectCache, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &ObjectCache{client: client, bucket: cfg.Bucket}, nil
}

func (c *ObjectCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("get artifact %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, true, nil
}

func (c *ObjectCache) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", key, err)
	}
	return nil
}

// artifactKey identifies one rendering of one revision of a note.
func artifactKey(note Note, format Format, opts Options) string {
	h := sha256.New()
	h.Write([]byte(note.Title))
	h.Write([]byte{0})
	h.Write(note.Content)
	sum := h.Sum(nil)
	return "exports/" + note.ID + "/" +
		strconv.FormatInt(note.UpdatedAt.UnixNano(), 10) + "-" +
		hex.EncodeToString(sum[:8]) + "-" +
		strconv.FormatBool(opts.IncludeStyles) + strconv.FormatBool(opts.Minify) +
		format.extension()
}
