package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"
)

// TieredStore combines local disk (source of truth) with a remote backup.
// Write path: save locally first (never block on the remote), then enqueue
// the backup upload. Read path: local first, remote fallback with cache-on-read.
type TieredStore struct {
	local    *LocalStore
	uploader *AsyncUploader
	log      zerolog.Logger
}

// NewTieredStore creates a tiered local-primary + remote-backup store.
func NewTieredStore(local *LocalStore, uploader *AsyncUploader, log zerolog.Logger) *TieredStore {
	return &TieredStore{
		local:    local,
		uploader: uploader,
		log:      log.With().Str("component", "tiered-store").Logger(),
	}
}

// Save writes to local disk first (fatal on failure), then enqueues the backup.
// Backup failures are non-fatal; the upload reconciler will catch them.
func (s *TieredStore) Save(ctx context.Context, bucket Bucket, name string, data []byte, ct string) error {
	if err := s.local.Save(ctx, bucket, name, data, ct); err != nil {
		return err
	}
	s.uploader.Enqueue(objectKey(bucket, name), data, ct)
	return nil
}

// Open checks local disk first, then falls back to the remote. On a remote
// hit the file is cached locally for future reads.
func (s *TieredStore) Open(ctx context.Context, bucket Bucket, name string) (io.ReadCloser, error) {
	r, err := s.local.Open(ctx, bucket, name)
	if err == nil {
		return r, nil
	}
	if !validName(name) {
		return nil, ErrNotFound
	}
	rr, rerr := s.uploader.remote.Open(ctx, objectKey(bucket, name))
	if rerr != nil {
		return nil, ErrNotFound
	}
	data, rerr := io.ReadAll(rr)
	rr.Close()
	if rerr != nil {
		return nil, rerr
	}
	// Best-effort local cache write
	if cacheErr := s.local.Save(ctx, bucket, name, data, ContentType(name)); cacheErr != nil {
		s.log.Warn().Err(cacheErr).Str("bucket", string(bucket)).Str("name", name).Msg("failed to cache remote file locally")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *TieredStore) Exists(ctx context.Context, bucket Bucket, name string) bool {
	if s.local.Exists(ctx, bucket, name) {
		return true
	}
	return validName(name) && s.uploader.remote.Exists(ctx, objectKey(bucket, name))
}

// ExistsLocal ignores the remote. A report is only ever written next to a
// local artifact, so the remote never holds one the disk lacks.
func (s *TieredStore) ExistsLocal(ctx context.Context, bucket Bucket, name string) bool {
	return s.local.Exists(ctx, bucket, name)
}

// List always reads local disk; the remote is a backup, not an index.
func (s *TieredStore) List(ctx context.Context, bucket Bucket) ([]string, error) {
	return s.local.List(ctx, bucket)
}

func (s *TieredStore) Type() string { return "tiered" }
