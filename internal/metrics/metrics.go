// Package metrics exposes the single process-wide counter the ingest
// pipeline ticks on every record, registered against a caller-supplied
// registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder ticks the records-processed counter, bucketed by above_hwm.
type Recorder struct {
	processed *prometheus.CounterVec
}

// NewRecorder registers kafka_messages_processed_total against registry.
func NewRecorder(registry prometheus.Registerer) *Recorder {
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_messages_processed_total",
		Help: "Total number of Kafka messages processed by the backup sink.",
	}, []string{"above_hwm"})
	registry.MustRegister(processed)
	return &Recorder{processed: processed}
}

// Tick increments the counter for a single processed record.
func (r *Recorder) Tick(aboveHWM bool) {
	r.processed.WithLabelValues(boolLabel(aboveHWM)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
