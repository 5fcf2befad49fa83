// Package metrics records parser progress as Prometheus counters.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/penwyp/svnlogstats/model"
)

const namespace = "svnlogstats"

// Recorder implements parser.Observer on top of a private registry.
type Recorder struct {
	registry *prometheus.Registry

	revisions    *prometheus.CounterVec
	fileChanges  *prometheus.CounterVec
	lines        *prometheus.CounterVec
	anomalies    *prometheus.CounterVec
	lastRevision prometheus.Gauge
}

// NewRecorder creates a recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		revisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revisions_total",
			Help:      "Revisions parsed, by merge status.",
		}, []string{"merge_status"}),
		fileChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_changes_total",
			Help:      "File changes parsed, by change type.",
		}, []string{"change_type"}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Diff lines counted, by kind.",
		}, []string{"kind"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Malformed or unexpected input lines, by kind.",
		}, []string{"kind"}),
		lastRevision: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_revision",
			Help:      "Number of the most recently parsed revision.",
		}),
	}
	r.registry.MustRegister(r.revisions, r.fileChanges, r.lines, r.anomalies, r.lastRevision)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Revision counts one emitted revision.
func (r *Recorder) Revision(rev *model.Revision) {
	r.revisions.WithLabelValues(rev.MergeStatus.String()).Inc()
	r.lastRevision.Set(float64(rev.ID))

	for _, fc := range rev.FileChanges {
		r.fileChanges.WithLabelValues(fc.ChangeType.String()).Inc()
	}
	r.lines.WithLabelValues("added").Add(float64(rev.LinesAdded()))
	r.lines.WithLabelValues("removed").Add(float64(rev.LinesRemoved()))
	r.lines.WithLabelValues("modified").Add(float64(rev.LinesModified()))
}

// Anomaly counts one anomaly of the given kind.
func (r *Recorder) Anomaly(kind string) {
	r.anomalies.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
