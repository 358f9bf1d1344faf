package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/divvy/internal/events"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}
	at := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), events.LedgerChanged{
		Kind:       events.PaymentCreated,
		RecordID:   "pay-1",
		OccurredAt: at,
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "pay-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "payment.created", string(msg.Headers[0].Value))

	var got events.LedgerChanged
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, events.PaymentCreated, got.Kind)
	assert.True(t, got.OccurredAt.Equal(at))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("no brokers")}}

	err := p.Publish(context.Background(), events.LedgerChanged{Kind: events.ExpenseDeleted, RecordID: "e"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expense.deleted")
}

func TestNewPublisher_DefaultTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, w.Topic)
}
