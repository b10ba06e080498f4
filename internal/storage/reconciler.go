package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// UploadReconciler scans the bucket directories for files missing from the
// remote and re-uploads them. Handles dropped async uploads and crash recovery.
type UploadReconciler struct {
	local    *LocalStore
	remote   Remote
	interval time.Duration
	log      zerolog.Logger
	stop     chan struct{}
	done     chan struct{}
}

// ReconcileStats summarizes one reconcile pass.
type ReconcileStats struct {
	Checked  int
	Uploaded int
	Failed   int
}

// NewUploadReconciler creates a reconciler that checks for missing uploads
// every interval (5m when interval <= 0).
func NewUploadReconciler(local *LocalStore, remote Remote, interval time.Duration, log zerolog.Logger) *UploadReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &UploadReconciler{
		local:    local,
		remote:   remote,
		interval: interval,
		log:      log.With().Str("component", "upload-reconciler").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (r *UploadReconciler) Start() { go r.loop() }

func (r *UploadReconciler) Stop() {
	close(r.stop)
	<-r.done
}

func (r *UploadReconciler) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Reconcile(context.Background())
		case <-r.stop:
			return
		}
	}
}

// Reconcile uploads every local artifact and report the remote lacks.
func (r *UploadReconciler) Reconcile(ctx context.Context) ReconcileStats {
	var stats ReconcileStats

	for _, bucket := range Buckets {
		dir := r.local.BucketDir(bucket)
		files, err := os.ReadDir(dir)
		if err != nil {
			r.log.Warn().Err(err).Str("bucket", string(bucket)).Msg("reconcile scan failed")
			continue
		}
		for _, f := range files {
			if f.IsDir() || isTempName(f.Name()) {
				continue
			}
			stats.Checked++
			key := objectKey(bucket, f.Name())

			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			exists := r.remote.Exists(checkCtx, key)
			cancel()
			if exists {
				continue
			}

			data, readErr := os.ReadFile(filepath.Join(dir, f.Name()))
			if readErr != nil {
				continue
			}

			saveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if saveErr := r.remote.Save(saveCtx, key, data, ContentType(f.Name())); saveErr != nil {
				r.log.Warn().Err(saveErr).Str("key", key).Msg("reconcile upload failed")
				stats.Failed++
			} else {
				stats.Uploaded++
			}
			cancel()
		}
	}

	if stats.Uploaded > 0 || stats.Failed > 0 {
		r.log.Info().
			Int("uploaded", stats.Uploaded).
			Int("failed", stats.Failed).
			Int("checked", stats.Checked).
			Msg("reconcile complete")
	}
	return stats
}
