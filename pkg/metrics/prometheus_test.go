package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordJob("success", 0.2)
	r.RecordJob("success", 0.3)
	r.RecordJob("skipped", 0)
	r.RecordCache("hit")
	r.RecordCache("miss")
	r.RecordCache("miss")
	r.RecordCandlesInserted(42)
	r.RecordCandlesInserted(0)
	r.RecordError("store")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.jobsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheOps.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheOps.WithLabelValues("miss")))
	assert.Equal(t, 42.0, testutil.ToFloat64(r.candlesInserted))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("store")))
}

func TestRecordersUseSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
