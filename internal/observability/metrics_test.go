package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordFix(t *testing.T) {
	before := testutil.ToFloat64(fixesCounter.WithLabelValues(FixAccepted))

	RecordFix(FixAccepted)

	assert.Equal(t, before+1, testutil.ToFloat64(fixesCounter.WithLabelValues(FixAccepted)))
}

func TestRecordExport(t *testing.T) {
	before := testutil.ToFloat64(exportsCounter.WithLabelValues("gpx", "error"))

	RecordExport("gpx", "error", 5*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(exportsCounter.WithLabelValues("gpx", "error")))
}

func TestRecordPruned_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(prunedCounter)

	RecordPruned(0)
	RecordPruned(-2)
	RecordPruned(3)

	assert.Equal(t, before+3, testutil.ToFloat64(prunedCounter))
}

func TestSetActiveTracks(t *testing.T) {
	SetActiveTracks(4)

	assert.Equal(t, 4.0, testutil.ToFloat64(activeTracksGauge))
}

func TestRecordRequest(t *testing.T) {
	c := requestsCounter.WithLabelValues("GET", "/tracks/{id}", "404")
	before := testutil.ToFloat64(c)

	RecordRequest("GET", "/tracks/{id}", 404)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
