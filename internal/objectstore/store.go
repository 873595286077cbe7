// Package objectstore adapts MinIO (S3-compatible) as the artifact store
// for raw datasets, trained weights, and user bundles, following
// kakimnsnv-diploma-back's internal/storage.MinIOClient pattern but adding
// the retry, URI allow-listing, and verified-upload contract this pipeline
// requires.
package objectstore

import (
	"context"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"automl-orchestrator/internal/errkind"
	"automl-orchestrator/internal/retry"
)

// Config is the subset of AppConfig the store needs, provided to fx by type
// so this package doesn't depend on internal/config directly.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Buckets   []string
}

// ObjectStore is the interface agents depend on, so workflow tests can
// substitute a fake without touching MinIO.
type ObjectStore interface {
	Download(ctx context.Context, rawURI string, destPath string) error
	Upload(ctx context.Context, srcPath string, rawURI string) error
	Head(ctx context.Context, rawURI string) (int64, error)
	OpenRead(ctx context.Context, rawURI string) (io.ReadCloser, error)
}

// Store is the typed adapter described in spec §4.2: parse, download,
// upload, open_read, all against an allow-listed set of buckets.
type Store struct {
	client  *minio.Client
	buckets []string
	logger  *zap.Logger
}

// Params is the fx.In bundle New needs.
type Params struct {
	fx.In

	Config Config
	Logger *zap.Logger
}

// New constructs the MinIO client and ensures every allow-listed bucket
// exists, mirroring kakimnsnv-diploma-back's create-bucket-if-missing step.
func New(p Params) (*Store, error) {
	client, err := minio.New(p.Config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(p.Config.AccessKey, p.Config.SecretKey, ""),
		Secure: p.Config.UseSSL,
	})
	if err != nil {
		return nil, errkind.Wrap(errkind.Permanent, "construct minio client", err)
	}

	ctx := context.Background()
	for _, bucket := range p.Config.Buckets {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, errkind.Wrap(errkind.Dependency, "check bucket existence: "+bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, errkind.Wrap(errkind.Dependency, "create bucket: "+bucket, err)
			}
		}
	}

	return &Store{client: client, buckets: p.Config.Buckets, logger: p.Logger}, nil
}

// Module provides a *Store and the ObjectStore interface it satisfies to
// the fx graph.
var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(s *Store) ObjectStore { return s }),
)

var _ ObjectStore = (*Store)(nil)

// Download streams the object at uri to destPath, retrying transient
// failures per retry.ObjectStorePolicy. Partial files are always removed
// on a failed attempt.
func (s *Store) Download(ctx context.Context, rawURI string, destPath string) error {
	uri, err := ParseURI(rawURI, s.buckets)
	if err != nil {
		return err
	}

	policy := retry.ObjectStorePolicy()
	return policy.Execute(ctx, func() error {
		if err := s.client.FGetObject(ctx, uri.Bucket, uri.Path, destPath, minio.GetObjectOptions{}); err != nil {
			os.Remove(destPath)
			return errkind.Wrap(errkind.Transient, "download object", err)
		}

		info, statErr := os.Stat(destPath)
		if statErr != nil || info.Size() == 0 {
			os.Remove(destPath)
			return errkind.New(errkind.Transient, "downloaded file is empty: "+rawURI)
		}
		return nil
	})
}

// Upload streams srcPath to uri, then issues a head request to verify
// existence and size before returning, satisfying the "object URIs always
// resolve at the moment of write" invariant.
func (s *Store) Upload(ctx context.Context, srcPath string, rawURI string) error {
	uri, err := ParseURI(rawURI, s.buckets)
	if err != nil {
		return err
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return errkind.Wrap(errkind.Permanent, "stat upload source", err)
	}
	localSize := info.Size()

	policy := retry.ObjectStorePolicy()
	return policy.Execute(ctx, func() error {
		file, err := os.Open(srcPath)
		if err != nil {
			return errkind.Wrap(errkind.Permanent, "open upload source", err)
		}
		defer file.Close()

		if _, err := s.client.PutObject(ctx, uri.Bucket, uri.Path, file, localSize, minio.PutObjectOptions{}); err != nil {
			return errkind.Wrap(errkind.Transient, "upload object", err)
		}

		objInfo, err := s.client.StatObject(ctx, uri.Bucket, uri.Path, minio.StatObjectOptions{})
		if err != nil {
			return errkind.Wrap(errkind.Transient, "verify uploaded object", err)
		}
		if objInfo.Size != localSize {
			return errkind.New(errkind.Transient, "uploaded object size mismatch")
		}
		return nil
	})
}

// Head verifies an object exists and reports its size.
func (s *Store) Head(ctx context.Context, rawURI string) (int64, error) {
	uri, err := ParseURI(rawURI, s.buckets)
	if err != nil {
		return 0, err
	}
	info, err := s.client.StatObject(ctx, uri.Bucket, uri.Path, minio.StatObjectOptions{})
	if err != nil {
		return 0, errkind.Wrap(errkind.NotFound, "object not found: "+rawURI, err)
	}
	return info.Size, nil
}

// OpenRead returns a streaming reader for gateway pass-through; the caller
// owns closing it. Not retried: callers that need a retryable open should
// retry the call to OpenRead itself.
func (s *Store) OpenRead(ctx context.Context, rawURI string) (io.ReadCloser, error) {
	uri, err := ParseURI(rawURI, s.buckets)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, uri.Bucket, uri.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, errkind.Wrap(errkind.Dependency, "open object for read", err)
	}
	return obj, nil
}
