package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err, "second registration on the same registry must fail")
}

func TestMetrics_Counters(t *testing.T) {
	m := newTestMetrics(t)

	m.Queued("sync")
	m.Queued("sync")
	m.Queued("nosync")
	m.Flushed("sync", true)
	m.Flushed("sync", false)
	m.Canceled(3)
	m.Played(5, time.Millisecond)
	m.Submitted(true)
	m.Synced(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandsQueued.WithLabelValues("sync")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsQueued.WithLabelValues("nosync")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Flushes.WithLabelValues("sync")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuffersReused))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CommandsCanceled))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.CommandsExecuted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ObjectsSynced))
}

func TestMetrics_Gauges(t *testing.T) {
	m := newTestMetrics(t)

	m.SetObjects(4, 1)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.LiveObjects))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirtyObjects))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Queued("sync")
		m.Canceled(1)
		m.Flushed("sync", true)
		m.Played(1, time.Second)
		m.Submitted(false)
		m.Synced(1)
		m.SetObjects(1, 1)
	})
}
