package metrics

import (
	"context"
	"sync"

	"civicreport/models"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ReportsSubmittedTotal counts created reports by assigned department.
	ReportsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicreport",
		Subsystem: "reports",
		Name:      "submitted_total",
		Help:      "Total number of reports submitted, labeled by assigned department.",
	}, []string{"department"})

	// StatusUpdatesTotal counts status transitions by target status.
	StatusUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicreport",
		Subsystem: "reports",
		Name:      "status_updates_total",
		Help:      "Total number of report status updates, labeled by new status.",
	}, []string{"status"})

	// ReportsStored is the number of reports held in memory.
	ReportsStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "civicreport",
		Subsystem: "reports",
		Name:      "stored",
		Help:      "Number of reports currently held in memory.",
	})

	// RejectedSubmissionsTotal counts submissions refused before storage.
	RejectedSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicreport",
		Subsystem: "reports",
		Name:      "rejected_submissions_total",
		Help:      "Total number of report submissions rejected, labeled by reason.",
	}, []string{"reason"})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ReportsSubmittedTotal,
			StatusUpdatesTotal,
			ReportsStored,
			RejectedSubmissionsTotal,
		)
	})
}

// Sink records report events as metrics.
type Sink struct{}

// HandleReportEvent updates counters for event.
func (Sink) HandleReportEvent(_ context.Context, event models.ReportEvent) error {
	switch event.Type {
	case models.EventReportCreated:
		ReportsSubmittedTotal.WithLabelValues(event.Report.AssignedDepartment).Inc()
		ReportsStored.Inc()
	case models.EventReportStatusUpdated:
		StatusUpdatesTotal.WithLabelValues(string(event.Report.Status)).Inc()
	}
	return nil
}
