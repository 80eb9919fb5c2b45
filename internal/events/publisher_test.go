package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ethanbaker/minutes/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestDisabledPublisherOnlyLogs(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	p := New(&Config{Topic: "custom"}, m)

	assert.Equal(t, "custom", p.Topic())
	require.NoError(t, p.PublishProcessed(context.Background(), ProcessedEvent{MeetingID: "m1"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("custom", "success")))
	assert.NoError(t, p.Close())

	assert.Equal(t, DefaultTopic, New(nil, m).Topic())
}

func TestPublishProcessed(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	w := &fakeWriter{}
	p := &Publisher{writer: w, topic: DefaultTopic, enabled: true, metrics: m}

	event := ProcessedEvent{MeetingID: "m1", Summary: "s", Decisions: 2, ActionItems: 1, ProcessedAt: time.Unix(0, 0).UTC()}
	require.NoError(t, p.PublishProcessed(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "m1", string(w.msgs[0].Key))

	var got ProcessedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, event, got)
}

func TestPublishError(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	p := &Publisher{writer: &fakeWriter{err: errors.New("broker down")}, topic: DefaultTopic, enabled: true, metrics: m}

	err := p.PublishProcessed(context.Background(), ProcessedEvent{MeetingID: "m1"})
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(DefaultTopic, "error")))
}
