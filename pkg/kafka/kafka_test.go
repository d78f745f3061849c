package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	topic string
	calls int
	err   error
}

func (h *stubHandler) Topic() string { return h.topic }

func (h *stubHandler) Handle(context.Context, []byte) error {
	h.calls++
	return h.err
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer(WithConsumerGroupID("g"))
	require.Error(t, err)
}

func TestConsumerStartRequiresHandlers(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}), WithConsumerRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	require.Error(t, c.Start())
}

func TestParseCompressionFallsBackToGzip(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression("brotli"))
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, err = encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	_, err = encodeValue(make(chan int))
	require.Error(t, err)
}

func TestBackoffWithJitterStaysInRange(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(50*time.Millisecond, 2*time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}

func TestHandleRetriesThenGivesUp(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, time.Millisecond),
		WithConsumerRegisterer(reg),
	)
	require.NoError(t, err)

	var seenErrs int
	c.WithConsumerHook(HookFuncs{
		Err: func(context.Context, string, kafka.Message, []byte, error) { seenErrs++ },
	})

	h := &stubHandler{topic: "candles.ingest", err: errors.New("boom")}
	c.handle(h, &message{topic: h.topic, data: []byte(`{}`)})

	assert.Equal(t, 3, h.calls)
	assert.Equal(t, 3, seenErrs)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.handled.WithLabelValues("candles.ingest", "error")))
}

func TestBeforeHookErrorSkipsHandler(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	c.WithConsumerHook(HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			return ctx, km, data, errors.New("rejected")
		},
	})

	h := &stubHandler{topic: "t"}
	c.handle(h, &message{topic: "t"})
	assert.Equal(t, 0, h.calls)
}
