package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BucketInventory counts what is on disk for one bucket.
type BucketInventory struct {
	Bucket    string
	Artifacts int
	Reports   int // artifacts that have a sibling report
}

// Inventory provides the collector access to stored artifact counts.
type Inventory interface {
	Inventory(ctx context.Context) ([]BucketInventory, error)
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
// Artifacts without a report are the visible trace of runs that failed after
// the audio was written.
type Collector struct {
	inv Inventory

	artifacts      *prometheus.Desc
	missingReports *prometheus.Desc
}

// NewCollector creates a collector that reads inventory at scrape time.
// inv may be nil (no series are emitted).
func NewCollector(inv Inventory) *Collector {
	return &Collector{
		inv: inv,
		artifacts: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "stored_artifacts"),
			"Audio artifacts currently stored per bucket.",
			[]string{"bucket"}, nil,
		),
		missingReports: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "artifacts_missing_report"),
			"Stored artifacts that have no transcript report.",
			[]string{"bucket"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.artifacts
	ch <- c.missingReports
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.inv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	buckets, err := c.inv.Inventory(ctx)
	if err != nil {
		return
	}
	for _, b := range buckets {
		ch <- prometheus.MustNewConstMetric(c.artifacts, prometheus.GaugeValue, float64(b.Artifacts), b.Bucket)
		ch <- prometheus.MustNewConstMetric(c.missingReports, prometheus.GaugeValue, float64(b.Artifacts-b.Reports), b.Bucket)
	}
}
