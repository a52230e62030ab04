package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	msgs   []skafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...skafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisherWithWriter(w, zap.NewNop())

	event := StatusChanged{
		Type:       StatusChangedType,
		ShipmentID: "s-1",
		PrevStatus: "created",
		NewStatus:  "in_transit",
		At:         time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), "s-1", event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "s-1", string(w.msgs[0].Key))

	var decoded StatusChanged
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, event, decoded)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewKafkaPublisherWithWriter(w, zap.NewNop())

	err := p.Publish(context.Background(), "k", map[string]string{"a": "b"})
	assert.EqualError(t, err, "broker down")
}
