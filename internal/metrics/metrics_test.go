package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveFetch(true)
	m.ObserveFetch(false)
	m.ObserveFetch(false)
	m.ObserveTranslation(TranslationCacheHit)
	m.ObserveAttempt(AttemptTimeout)
	m.IncrementDuplicatesFiltered()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedFetches.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.feedFetches.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.translations.WithLabelValues(TranslationCacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.translationAttempts.WithLabelValues(AttemptTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.duplicatesFiltered))
}

func TestHealthStatus(t *testing.T) {
	m := New(prometheus.NewRegistry())
	assert.True(t, m.Status().Healthy)

	m.SetError("busy")
	st := m.Status()
	assert.False(t, st.Healthy)
	assert.Equal(t, "busy", st.LastError)

	m.RecordBuild("morning", 4, 2*time.Second)
	assert.True(t, m.Status().Healthy)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.digestEntries.WithLabelValues("morning")))
}
