package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentworkers/internal/metrics"
)

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveMessage("extract", "acked", time.Second)
		m.AddPages("parallel", 3)
		m.ObserveRoute("inline")
	})
}

func TestMetrics_RecordsMessages(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveMessage("extract", "acked", 10*time.Millisecond)
	m.ObserveMessage("extract", "acked", 20*time.Millisecond)
	m.AddPages("sequential", 2)

	n, err := testutil.GatherAndCount(reg, "docworker_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = testutil.GatherAndCount(reg, "docworker_pages_extracted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
