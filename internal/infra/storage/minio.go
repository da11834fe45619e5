package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// MinioConfig locates the bucket that holds analysis objects.
type MinioConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// MinioStore keeps one <prefix><id>.json object per analysis.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStore connects and creates the bucket when it is missing.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, err
		}
	}
	return &MinioStore{client: cli, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *MinioStore) key(id domain.ID) string { return objectKey(s.prefix, id) }

func objectKey(prefix string, id domain.ID) string { return prefix + string(id) + ".json" }

// Create refuses to overwrite an existing object. The existence check and
// the put are two requests; the random id suffix keeps the window harmless.
func (s *MinioStore) Create(ctx context.Context, a *domain.Analysis) error {
	if !a.ID.Valid() {
		return storageErr("invalid analysis id "+string(a.ID), nil)
	}
	_, err := s.client.StatObject(ctx, s.bucket, s.key(a.ID), minio.StatObjectOptions{})
	switch {
	case err == nil:
		return alreadyExists(a.ID)
	case !isNoSuchKey(err):
		return storageErr("stat analysis object", err)
	}
	return s.put(ctx, a)
}

func (s *MinioStore) Update(ctx context.Context, id domain.ID, report string, at time.Time) error {
	a, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	a.Report = report
	a.UpdatedAt = at
	return s.put(ctx, a)
}

func (s *MinioStore) Load(ctx context.Context, id domain.ID) (*domain.Analysis, error) {
	if !id.Valid() {
		return nil, notFound(id)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(id), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, notFound(id)
		}
		return nil, storageErr("get analysis object", err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, notFound(id)
		}
		return nil, storageErr("read analysis object", err)
	}
	return decodeRecord(id, b)
}

// Ping checks that the bucket is reachable.
func (s *MinioStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func (s *MinioStore) put(ctx context.Context, a *domain.Analysis) error {
	b, err := encodeRecord(a)
	if err != nil {
		return storageErr("encode analysis", err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key(a.ID), bytes.NewReader(b), int64(len(b)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return storageErr("put analysis object", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
