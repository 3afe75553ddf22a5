package metrics

import (
	"context"
	"testing"

	"civicreport/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSinkCountsEvents(t *testing.T) {
	report := &models.Report{ID: 1, Status: models.StatusSubmitted, AssignedDepartment: "Electrical"}
	submitted := testutil.ToFloat64(ReportsSubmittedTotal.WithLabelValues("Electrical"))
	stored := testutil.ToFloat64(ReportsStored)
	resolved := testutil.ToFloat64(StatusUpdatesTotal.WithLabelValues("Resolved"))

	sink := Sink{}
	assert.NoError(t, sink.HandleReportEvent(context.Background(), models.NewReportEvent(models.EventReportCreated, report)))
	report.Status = models.StatusResolved
	assert.NoError(t, sink.HandleReportEvent(context.Background(), models.NewReportEvent(models.EventReportStatusUpdated, report)))

	assert.Equal(t, submitted+1, testutil.ToFloat64(ReportsSubmittedTotal.WithLabelValues("Electrical")))
	assert.Equal(t, stored+1, testutil.ToFloat64(ReportsStored))
	assert.Equal(t, resolved+1, testutil.ToFloat64(StatusUpdatesTotal.WithLabelValues("Resolved")))
}

func TestRegisterTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}
