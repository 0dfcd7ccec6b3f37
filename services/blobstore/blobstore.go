// Package blobstore is repod's content-addressed object store (spec
// §4.B): it streams uploaded .deb payloads to S3-compatible storage while
// digesting them in one pass, and lays out pool and index objects under a
// repository's tenant prefix.
//
// Store's method set mirrors gitea's modules/storage package,
// generalized down to the subset repod's mirror (§4.F) and blob upload
// need; the concrete implementation talks to any S3-compatible endpoint
// through minio-go, the same client gitea's own minio backend uses.
package blobstore

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"code.deblane.dev/repod/modules/apierror"
	"code.deblane.dev/repod/modules/digest"
	"code.deblane.dev/repod/modules/log"
	"code.deblane.dev/repod/modules/setting"
)

// Store wraps a minio client bound to repod's configured bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New dials the configured S3-compatible endpoint. It does not verify
// bucket existence; the bucket is expected to be provisioned out of band.
func New(cfg setting.Storage) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, apierror.Wrap(apierror.StorageUnavailable, "STORAGE_CLIENT_INIT_FAILED", "could not initialize storage client", err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Bucket returns the bucket this store was configured with, used by
// callers that persist bucket alongside a key (catalog.Package.Bucket,
// catalog.ByHashCleanup.Bucket).
func (s *Store) Bucket() string { return s.bucket }

// Put uploads r to key, digesting it in the same pass, and returns the
// resulting digest.Set (§4.B: "the server digests the payload during the
// single streaming write; it does not re-read the object to verify").
// contentType may be empty, in which case minio infers "application/octet-stream".
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (digest.Set, error) {
	pr, pw := io.Pipe()
	digestCh := make(chan digest.Set, 1)
	errCh := make(chan error, 1)

	go func() {
		defer pw.Close()
		set, err := digest.TeeStream(pw, r)
		digestCh <- set
		errCh <- err
	}()

	opts := minio.PutObjectOptions{ContentType: contentType}
	if contentType == "" {
		opts.ContentType = "application/octet-stream"
	}
	putSize := size
	if putSize <= 0 {
		putSize = -1
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, pr, putSize, opts)
	set := <-digestCh
	if teeErr := <-errCh; teeErr != nil {
		return digest.Set{}, apierror.Wrap(apierror.StorageUnavailable, "STORAGE_UPLOAD_FAILED", "could not read upload payload", teeErr)
	}
	if err != nil {
		return digest.Set{}, apierror.Wrap(apierror.StorageUnavailable, "STORAGE_UPLOAD_FAILED", "could not upload object", err)
	}
	return set, nil
}

// PutBytes uploads an in-memory payload (used for generated Packages and
// Release bodies, §4.D), returning its digest.Set.
func (s *Store) PutBytes(ctx context.Context, key string, contentType string, body []byte) (digest.Set, error) {
	set := digest.Of(body)
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), opts); err != nil {
		return digest.Set{}, apierror.Wrap(apierror.StorageUnavailable, "STORAGE_UPLOAD_FAILED", "could not upload object", err)
	}
	return set, nil
}

// Exists reports whether key is already present. Package uploads do not
// call it; they write the content-addressed key unconditionally.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
		return false, nil
	}
	return false, apierror.Wrap(apierror.StorageUnavailable, "STORAGE_STAT_FAILED", "could not stat object", err)
}

// Get opens key for reading. The mirror sweeper and resync do not use
// it: the sweeper only removes objects and resync re-uploads from the
// catalog.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apierror.Wrap(apierror.StorageUnavailable, "STORAGE_GET_FAILED", "could not open object", err)
	}
	return obj, nil
}

// Copy server-side copies src to dst without a client round trip, used to
// fan a generated index out to its by-hash siblings (§4.D, §4.F).
func (s *Store) Copy(ctx context.Context, dst, src string) error {
	_, err := s.client.CopyObject(ctx, minio.CopyDestOptions{Bucket: s.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: s.bucket, Object: src})
	if err != nil {
		return apierror.Wrap(apierror.StorageUnavailable, "STORAGE_COPY_FAILED", "could not copy object", err)
	}
	return nil
}

// Remove deletes key, used by the by-hash grace-window sweeper (§4.F)
// once a tombstone has expired.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apierror.Wrap(apierror.StorageUnavailable, "STORAGE_REMOVE_FAILED", "could not remove object", err)
	}
	return nil
}

// Sweep runs fn for objects under prefix, logging failures rather than
// aborting so one bad key does not stall the rest of a cleanup pass.
func (s *Store) Sweep(ctx context.Context, prefix string, fn func(key string) error) error {
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			log.S().Warnw("blobstore sweep list error", "prefix", prefix, "err", obj.Err)
			continue
		}
		if err := fn(obj.Key); err != nil {
			log.S().Warnw("blobstore sweep callback failed", "key", obj.Key, "err", err)
		}
	}
	return nil
}
