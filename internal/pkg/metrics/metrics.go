package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	LoginAttemptsTotal       *prometheus.CounterVec
	WebhookEventsTotal       *prometheus.CounterVec
	BackupRunsTotal          *prometheus.CounterVec
	BackupDurationSeconds    prometheus.Histogram
	MigrationStatementsTotal *prometheus.CounterVec
	JobResultsTotal          *prometheus.CounterVec
	CNPJLookupsTotal         *prometheus.CounterVec
	ImportedProductsTotal    prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellsync_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellsync_webhook_events_total",
				Help: "Billing webhook events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		BackupRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellsync_backup_runs_total",
				Help: "Database backup runs by outcome",
			},
			[]string{"outcome"},
		),
		BackupDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cellsync_backup_duration_seconds",
				Help:    "Duration of database backup runs",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
			},
		),
		MigrationStatementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellsync_migration_statements_total",
				Help: "Migration statements by outcome (applied, tolerated, failed)",
			},
			[]string{"outcome"},
		),
		JobResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellsync_job_results_total",
				Help: "Background job results by type",
			},
			[]string{"type", "result"},
		),
		CNPJLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellsync_cnpj_lookups_total",
				Help: "CNPJ lookups by source (lru, redis, receitaws, brasilapi, miss)",
			},
			[]string{"source"},
		),
		ImportedProductsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cellsync_imported_products_total",
				Help: "Products created by the importer",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.LoginAttemptsTotal,
		m.WebhookEventsTotal,
		m.BackupRunsTotal,
		m.BackupDurationSeconds,
		m.MigrationStatementsTotal,
		m.JobResultsTotal,
		m.CNPJLookupsTotal,
		m.ImportedProductsTotal,
	)
	return m
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the process-wide metrics on their own registry, including
// Go runtime and process collectors.
func Default() *Metrics {
	defaultOnce.Do(func() {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		defaultMetrics = NewMetrics(registry)
	})
	return defaultMetrics
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) ObserveBackup(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.BackupRunsTotal.WithLabelValues(outcome).Inc()
	m.BackupDurationSeconds.Observe(seconds)
}

func (m *Metrics) ObserveMigrationStatement(outcome string) {
	if m == nil {
		return
	}
	m.MigrationStatementsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveJob(jobType, result string) {
	if m == nil {
		return
	}
	m.JobResultsTotal.WithLabelValues(jobType, result).Inc()
}

func (m *Metrics) ObserveCNPJLookup(source string) {
	if m == nil {
		return
	}
	m.CNPJLookupsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) AddImportedProducts(n int) {
	if m == nil {
		return
	}
	if n > 0 {
		m.ImportedProductsTotal.Add(float64(n))
	}
}
