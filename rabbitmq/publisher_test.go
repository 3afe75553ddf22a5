package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"civicreport/models"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published []published
	err       error
	closed    bool
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestHandleReportEvent(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{channel: ch, exchange: "civic-reports"}
	event := models.NewReportEvent(models.EventReportCreated, &models.Report{
		ID:                 3,
		Title:              "Overflowing bin",
		Photo:              []byte("jpeg"),
		Status:             models.StatusSubmitted,
		AssignedDepartment: "Sanitation",
	})

	require.NoError(t, p.HandleReportEvent(context.Background(), event))
	require.Len(t, ch.published, 1)

	got := ch.published[0]
	assert.Equal(t, "civic-reports", got.exchange)
	assert.Equal(t, "report.created", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var decoded models.ReportEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, int64(3), decoded.Report.ID)
	assert.True(t, decoded.Report.HasPhoto)
	assert.NotContains(t, string(got.msg.Body), "anBlZw==")
}

func TestHandleReportEventError(t *testing.T) {
	p := &Publisher{channel: &fakeChannel{err: errors.New("channel closed")}, exchange: "x"}

	err := p.HandleReportEvent(context.Background(), models.NewReportEvent(models.EventReportStatusUpdated, &models.Report{ID: 1}))

	assert.ErrorContains(t, err, "channel closed")
}

func TestPublishCancelledContext(t *testing.T) {
	p := &Publisher{channel: &fakeChannel{}, exchange: "x"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, p.Publish(ctx, "key", map[string]string{"a": "b"}))
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{channel: ch, exchange: "x"}

	assert.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
