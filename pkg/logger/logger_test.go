package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestCollectorAggregatesRepeatedErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "service.logs",
		Publisher:      pub,
	})

	for i := 0; i < 3; i++ {
		l.Error("store unavailable", String("op", "claim"))
	}
	l.Error("cache decode failed")
	l.Warn("not collected")

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "service.logs", pub.topic)

	batch := pub.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "store unavailable", batch[0].Message)
	assert.Equal(t, 3, batch[0].Count)
	assert.Equal(t, "claim", batch[0].Fields["op"])
	assert.Equal(t, 1, batch[1].Count)
}

func TestWithAddsFieldsToEveryEntry(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{zl: zerolog.New(&buf)}

	child := l.With(String("tenant_id", "t-1"))
	child.Info("job claimed", Int("attempt", 2), Error(errors.New("boom")))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "t-1", entry["tenant_id"])
	assert.Equal(t, float64(2), entry["attempt"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "job claimed", entry["message"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}
