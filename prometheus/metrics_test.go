package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dbOperationSample(t *testing.T, operation string) (uint64, float64) {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "chat_db_operation_duration_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "operation" && label.GetValue() == operation {
					hist := metric.GetHistogram()
					return hist.GetSampleCount(), hist.GetSampleSum()
				}
			}
		}
	}
	return 0, 0
}

func TestTrackDBOperationScopedToItsSpan(t *testing.T) {
	countBefore, sumBefore := dbOperationSample(t, "insert")

	done := TrackDBOperation("insert")
	done(time.Now())

	// Work that happens after the closure runs must not leak into the
	// recorded duration.
	time.Sleep(20 * time.Millisecond)

	countAfter, sumAfter := dbOperationSample(t, "insert")
	assert.Equal(t, countBefore+1, countAfter)
	assert.Less(t, sumAfter-sumBefore, 0.02,
		"recorded duration covers only the tracked span")
}
