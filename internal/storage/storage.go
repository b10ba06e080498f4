package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/voxnote/internal/config"
)

// Bucket is one of the two flat artifact directories.
type Bucket string

const (
	Recordings  Bucket = "uploads"
	Synthesized Bucket = "tts"
)

// Buckets lists every recognized bucket in display order.
var Buckets = []Bucket{Recordings, Synthesized}

const (
	// AudioExt is the only artifact extension listed in either bucket.
	AudioExt = ".wav"
	// ReportExt is appended to an artifact name to get its report name.
	ReportExt = ".txt"
)

var (
	ErrInvalidBucket = errors.New("invalid folder")
	ErrNotFound      = errors.New("file not found")
)

// ParseBucket maps a folder name to a Bucket, rejecting anything else.
func ParseBucket(s string) (Bucket, error) {
	for _, b := range Buckets {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBucket, s)
}

// ReportName returns the sibling report filename for an artifact.
func ReportName(artifact string) string { return artifact + ReportExt }

// ArtifactStore abstracts the bucketed flat-file layout.
type ArtifactStore interface {
	// Save stores data as bucket/name, replacing nothing partially: readers
	// either see the complete file or no file.
	Save(ctx context.Context, bucket Bucket, name string, data []byte, contentType string) error

	// Open returns a reader for bucket/name, or ErrNotFound.
	Open(ctx context.Context, bucket Bucket, name string) (io.ReadCloser, error)

	// Exists checks whether bucket/name is present.
	Exists(ctx context.Context, bucket Bucket, name string) bool

	// ExistsLocal checks the primary disk only. Listings use it so that a
	// missing report never costs a remote round trip.
	ExistsLocal(ctx context.Context, bucket Bucket, name string) bool

	// List returns the artifact names in bucket, newest first.
	List(ctx context.Context, bucket Bucket) ([]string, error)

	// Type returns "local" or "tiered".
	Type() string
}

// New creates an ArtifactStore rooted at dataDir. Both bucket directories are
// created up front; failure to do so is the one fatal storage condition.
// When S3 is configured the store is tiered and the returned background
// services (uploader, reconciler) must be started and stopped by the caller.
func New(cfg config.S3Config, dataDir string, log zerolog.Logger) (ArtifactStore, []BackgroundService, error) {
	local, err := NewLocalStore(dataDir)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Enabled() {
		return local, nil, nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	uploader := NewAsyncUploader(s3store, 64, 2, log)
	tiered := NewTieredStore(local, uploader, log)
	reconciler := NewUploadReconciler(local, s3store, cfg.ReconcileInterval, log)

	return tiered, []BackgroundService{uploader, reconciler}, nil
}

// BackgroundService is a stoppable background goroutine.
type BackgroundService interface {
	Start()
	Stop()
}

// ContentType returns the MIME type for an artifact or report filename.
func ContentType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ReportExt):
		return "text/plain; charset=utf-8"
	case strings.HasSuffix(lower, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(lower, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(lower, ".ogg"):
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// objectKey is the slash-separated key used by remote backends.
func objectKey(bucket Bucket, name string) string {
	return string(bucket) + "/" + name
}

// validName rejects anything that could escape a bucket directory.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return !isTempName(name)
}
