package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the filing and docket engine.
type Metrics struct {
	FilingsSubmitted     prometheus.Counter
	DocketEntriesCreated prometheus.Counter
	NefsGenerated        prometheus.Counter
	AttachmentsPromoted  prometheus.Counter
	DocumentsSealed      prometheus.Counter
	DocumentsStricken    prometheus.Counter
	DocumentsReplaced    prometheus.Counter
	EntryNumberConflicts prometheus.Counter
	RequestDuration      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		FilingsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_filings_submitted_total",
			Help: "Total number of filings successfully submitted",
		}),
		DocketEntriesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_docket_entries_created_total",
			Help: "Total number of docket entries created",
		}),
		NefsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_nefs_generated_total",
			Help: "Total number of notices of electronic filing generated",
		}),
		AttachmentsPromoted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_attachments_promoted_total",
			Help: "Total number of docket attachments promoted to documents",
		}),
		DocumentsSealed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_documents_sealed_total",
			Help: "Total number of document seal operations",
		}),
		DocumentsStricken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_documents_stricken_total",
			Help: "Total number of documents stricken from the record",
		}),
		DocumentsReplaced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_documents_replaced_total",
			Help: "Total number of document replacements",
		}),
		EntryNumberConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_entry_number_conflicts_total",
			Help: "Entry number allocation conflicts that triggered a transactional retry",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) IncrementFilingsSubmitted() {
	m.FilingsSubmitted.Inc()
}

func (m *Metrics) IncrementDocketEntriesCreated() {
	m.DocketEntriesCreated.Inc()
}

func (m *Metrics) IncrementNefsGenerated() {
	m.NefsGenerated.Inc()
}

func (m *Metrics) IncrementAttachmentsPromoted() {
	m.AttachmentsPromoted.Inc()
}

func (m *Metrics) IncrementDocumentsSealed() {
	m.DocumentsSealed.Inc()
}

func (m *Metrics) IncrementDocumentsStricken() {
	m.DocumentsStricken.Inc()
}

func (m *Metrics) IncrementDocumentsReplaced() {
	m.DocumentsReplaced.Inc()
}

func (m *Metrics) IncrementEntryNumberConflicts() {
	m.EntryNumberConflicts.Inc()
}
