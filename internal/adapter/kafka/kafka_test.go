package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/threat-zone-service/internal/config"
	"github.com/couchcryptid/threat-zone-service/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("scn-1"),
		Value:     []byte(`{"id":"scn-1"}`),
		Topic:     "release-scenarios",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("plant-sensors")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("scn-1"), raw.Key)
	assert.JSONEq(t, `{"id":"scn-1"}`, string(raw.Value))
	assert.Equal(t, "release-scenarios", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "plant-sensors", raw.Headers["source"])
	assert.Nil(t, raw.Commit, "commit is attached by the reader")
}

func TestToMessage(t *testing.T) {
	event := domain.OutputEvent{
		Key:   []byte("scn-1"),
		Value: []byte(`{"id":"tz-1"}`),
		Headers: map[string]string{
			"stability_class": "D",
			"assessment_id":   "tz-1",
			"processed_at":    "2024-06-01T05:00:00Z",
			"chemical":        "ammonia",
		},
	}

	msg := toMessage(event)

	assert.Equal(t, []byte("scn-1"), msg.Key)
	assert.JSONEq(t, `{"id":"tz-1"}`, string(msg.Value))
	require.Len(t, msg.Headers, 4)
	keys := make([]string, len(msg.Headers))
	for i, h := range msg.Headers {
		keys[i] = h.Key
	}
	assert.Equal(t, []string{"assessment_id", "chemical", "processed_at", "stability_class"}, keys)
	assert.Equal(t, []byte("ammonia"), msg.Headers[1].Value)
}

func TestWriter_LoadBatchEmpty(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaSinkTopic: "threat-zones"}, slog.Default())
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.LoadBatch(context.Background(), nil))
}

func TestReader_ExtractBatchCancelled(t *testing.T) {
	r := NewReader(&config.Config{
		KafkaBrokers:       []string{"localhost:1"},
		KafkaSourceTopic:   "release-scenarios",
		KafkaGroupID:       "threat-zone-test",
		BatchFlushInterval: 50 * time.Millisecond,
	}, slog.Default())
	t.Cleanup(func() { _ = r.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := r.ExtractBatch(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch)
}
