package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishBatchEncodesJSON(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "search-events")
	err := p.PublishBatch(context.Background(), []Event{
		{Key: "q1", Value: map[string]int{"hits": 2}},
		{Key: "q2", Value: map[string]int{"hits": 0}},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "q1", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"hits":2}`, string(w.msgs[0].Value))
}

func TestPublishBatchWriterError(t *testing.T) {
	p := NewProducerWithWriter(&recordingWriter{err: errors.New("no brokers")}, "t")
	err := p.PublishBatch(context.Background(), []Event{{Key: "k", Value: 1}})
	assert.ErrorContains(t, err, "no brokers")
}
