package storage

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Remote is a key-addressed backup backend. S3Store is the production one.
type Remote interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) bool
}

// AsyncUploader pushes backup copies without blocking the request path.
// Files are already durable on local disk before being enqueued here.
type AsyncUploader struct {
	remote   Remote
	ch       chan uploadJob
	workers  int
	log      zerolog.Logger
	wg       sync.WaitGroup
	stopped  atomic.Bool
	stopOnce sync.Once

	uploaded atomic.Int64
	failed   atomic.Int64
}

type uploadJob struct {
	key         string
	data        []byte
	contentType string
}

// NewAsyncUploader creates an async uploader with the given buffer size and worker count.
func NewAsyncUploader(remote Remote, bufferSize, workers int, log zerolog.Logger) *AsyncUploader {
	return &AsyncUploader{
		remote:  remote,
		ch:      make(chan uploadJob, bufferSize),
		workers: workers,
		log:     log.With().Str("component", "async-uploader").Logger(),
	}
}

// Enqueue adds an upload job. Non-blocking: drops with a warning if full or
// stopped, and the reconciler picks the file up later.
func (u *AsyncUploader) Enqueue(key string, data []byte, contentType string) bool {
	if u.stopped.Load() {
		return false
	}
	job := uploadJob{key: key, data: data, contentType: contentType}
	select {
	case u.ch <- job:
		return true
	default:
		u.log.Warn().Str("key", key).Msg("async upload queue full, skipping (file safe on disk)")
		return false
	}
}

// Start launches worker goroutines.
func (u *AsyncUploader) Start() {
	for i := 0; i < u.workers; i++ {
		u.wg.Add(1)
		go u.worker()
	}
	u.log.Info().Int("workers", u.workers).Int("buffer", cap(u.ch)).Msg("async uploader started")
}

// Stop stops accepting jobs and waits for queued uploads to drain.
func (u *AsyncUploader) Stop() {
	u.stopped.Store(true)
	u.stopOnce.Do(func() { close(u.ch) })
	u.wg.Wait()
	u.log.Info().
		Int64("uploaded", u.uploaded.Load()).
		Int64("failed", u.failed.Load()).
		Msg("async uploader stopped")
}

func (u *AsyncUploader) worker() {
	defer u.wg.Done()
	for job := range u.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := u.remote.Save(ctx, job.key, job.data, job.contentType); err != nil {
			u.failed.Add(1)
			u.log.Error().Err(err).Str("key", job.key).Msg("async upload failed (file safe on disk)")
		} else {
			u.uploaded.Add(1)
		}
		cancel()
	}
}
