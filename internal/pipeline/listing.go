package pipeline

import (
	"context"
	"io"

	"github.com/snarg/voxnote/internal/metrics"
	"github.com/snarg/voxnote/internal/report"
	"github.com/snarg/voxnote/internal/sentiment"
	"github.com/snarg/voxnote/internal/storage"
)

// maxReportBytes caps how much of a report is read when building a listing.
const maxReportBytes = 1 << 20

// Entry is one listed artifact.
type Entry struct {
	Name      string          `json:"name"`
	HasReport bool            `json:"has_report"`
	Label     sentiment.Label `json:"label,omitempty"`
}

// Listing is the newest-first contents of both buckets.
type Listing struct {
	Recordings  []Entry `json:"recordings"`
	Synthesized []Entry `json:"synthesized"`
}

// Listing returns the artifacts in both buckets, newest first, each with its
// report status. It never writes.
func (o *Orchestrator) Listing(ctx context.Context) (Listing, error) {
	rec, err := o.listBucket(ctx, storage.Recordings)
	if err != nil {
		return Listing{}, err
	}
	syn, err := o.listBucket(ctx, storage.Synthesized)
	if err != nil {
		return Listing{}, err
	}
	return Listing{Recordings: rec, Synthesized: syn}, nil
}

func (o *Orchestrator) listBucket(ctx context.Context, bucket storage.Bucket) ([]Entry, error) {
	names, err := o.store.List(ctx, bucket)
	if err != nil {
		return nil, &StorageError{Op: "list", Name: string(bucket), Err: err}
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		e := Entry{Name: name}
		if label, ok := o.reportLabel(ctx, bucket, name); ok {
			e.HasReport = true
			e.Label = label
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// reportLabel reads the sibling report. A report that exists but cannot be
// parsed still counts as present, with no label.
func (o *Orchestrator) reportLabel(ctx context.Context, bucket storage.Bucket, artifact string) (sentiment.Label, bool) {
	name := storage.ReportName(artifact)
	if !o.store.ExistsLocal(ctx, bucket, name) {
		return "", false
	}
	rc, err := o.store.Open(ctx, bucket, name)
	if err != nil {
		return "", false
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxReportBytes))
	if err != nil {
		return "", true
	}
	r, err := report.Parse(string(data))
	if err != nil {
		o.log.Debug().Err(err).Str("bucket", string(bucket)).Str("artifact", artifact).Msg("unreadable report")
		return "", true
	}
	return r.Sentiment.Label, true
}

// Inventory counts artifacts and reports per bucket for the metrics collector.
func (o *Orchestrator) Inventory(ctx context.Context) ([]metrics.BucketInventory, error) {
	out := make([]metrics.BucketInventory, 0, len(storage.Buckets))
	for _, b := range storage.Buckets {
		names, err := o.store.List(ctx, b)
		if err != nil {
			return nil, err
		}
		inv := metrics.BucketInventory{Bucket: string(b), Artifacts: len(names)}
		for _, name := range names {
			if o.store.ExistsLocal(ctx, b, storage.ReportName(name)) {
				inv.Reports++
			}
		}
		out = append(out, inv)
	}
	return out, nil
}
