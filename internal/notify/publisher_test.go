package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-pulse/internal/batch"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	declareErr error
	publishErr error
	sent       []published
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestPublisher_BatchCompleted(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "pulse.events", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, []string{"pulse.events:topic"}, ch.declared)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	p.BatchCompleted(context.Background(), batch.Status{
		ID: "b-1", Label: "acme/api", Total: 4, Processed: 4, Succeeded: 2, ScoreSum: 130,
	})

	require.Len(t, ch.sent, 1)
	sent := ch.sent[0]
	assert.Equal(t, "pulse.events", sent.exchange)
	assert.Equal(t, RoutingBatchCompleted, sent.key)
	assert.Equal(t, "b-1", sent.msg.MessageId)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)

	var body BatchCompleted
	require.NoError(t, json.Unmarshal(sent.msg.Body, &body))
	assert.Equal(t, BatchCompleted{
		BatchID: "b-1", Repository: "acme/api", Total: 4, Succeeded: 2, AverageScore: 65, CompletedAt: fixed,
	}, body)
}

func TestPublisher_NoSuccesses(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "x", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	p.BatchCompleted(context.Background(), batch.Status{ID: "b-2", Total: 1, Processed: 1})

	var body BatchCompleted
	require.NoError(t, json.Unmarshal(ch.sent[0].msg.Body, &body))
	assert.Zero(t, body.AverageScore)
}

func TestPublisher_Errors(t *testing.T) {
	_, err := NewPublisher(&fakeChannel{declareErr: errors.New("access refused")}, "x", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "access refused")

	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := NewPublisher(ch, "x", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.NotPanics(t, func() { p.BatchCompleted(context.Background(), batch.Status{ID: "b-3"}) })
	assert.Empty(t, ch.sent)
}
