package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const tempPrefix = ".artifact-"

// LocalStore stores artifacts on the local filesystem, one directory per bucket.
type LocalStore struct {
	dataDir string
}

// NewLocalStore creates a local store and ensures both bucket directories exist.
func NewLocalStore(dataDir string) (*LocalStore, error) {
	for _, b := range Buckets {
		dir := filepath.Join(dataDir, string(b))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return &LocalStore{dataDir: dataDir}, nil
}

func (s *LocalStore) Save(ctx context.Context, bucket Bucket, name string, data []byte, contentType string) error {
	if !validName(name) {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	dir := s.BucketDir(bucket)

	// Atomic write: temp file + rename
	tmp, err := os.CreateTemp(dir, tempPrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *LocalStore) Open(ctx context.Context, bucket Bucket, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.BucketDir(bucket), name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// Directories are not artifacts.
	if st, err := f.Stat(); err != nil || st.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}

func (s *LocalStore) Exists(ctx context.Context, bucket Bucket, name string) bool {
	if !validName(name) {
		return false
	}
	st, err := os.Stat(filepath.Join(s.BucketDir(bucket), name))
	return err == nil && !st.IsDir()
}

// ExistsLocal is Exists: local disk is the only tier.
func (s *LocalStore) ExistsLocal(ctx context.Context, bucket Bucket, name string) bool {
	return s.Exists(ctx, bucket, name)
}

func (s *LocalStore) List(ctx context.Context, bucket Bucket) ([]string, error) {
	entries, err := os.ReadDir(s.BucketDir(bucket))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", bucket, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || isTempName(e.Name()) {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), AudioExt) {
			names = append(names, e.Name())
		}
	}
	// Names are time-ordered, so a reverse lexicographic sort is newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (s *LocalStore) Type() string { return "local" }

// BucketDir returns the directory backing a bucket.
func (s *LocalStore) BucketDir(bucket Bucket) string {
	return filepath.Join(s.dataDir, string(bucket))
}

// Dir returns the data directory path.
func (s *LocalStore) Dir() string { return s.dataDir }

func isTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, ".tmp")
}
