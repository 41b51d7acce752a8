package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters. Exposition is wired by the host
// process, not here.
type Metrics struct {
	RecordsProcessed prometheus.Counter
	ParseFailures    prometheus.Counter
	DownloadFailures prometheus.Counter
	ArchiveFailures  prometheus.Counter
	PersistFailures  prometheus.Counter
}

// NewMetrics creates and registers the pipeline counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_archive_records_processed_total",
			Help: "Total number of log blobs parsed, archived and persisted.",
		}),
		ParseFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_archive_parse_failures_total",
			Help: "Total number of blobs that degraded to properties-only parsing.",
		}),
		DownloadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_archive_download_failures_total",
			Help: "Total number of blob downloads that failed and were deferred to a later run.",
		}),
		ArchiveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_archive_archive_failures_total",
			Help: "Total number of blob relocations to the archive container that failed.",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_archive_persist_failures_total",
			Help: "Total number of parsed records the record store rejected.",
		}),
	}
}
