package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	m.ObserveFetch("city", 10*time.Millisecond, nil)
	m.ObserveFetch("city", 10*time.Millisecond, errors.New("boom"))
	m.ObserveFetch("city", time.Millisecond, context.Canceled)
	m.ObserveSave("city", nil)
	m.IncQuery("search")
	m.IncStale()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.ObserveHTTP("get", 200)
	m.ObserveCommand("FT.SUGGET", time.Millisecond, false)
	m.ObserveCommand("FT.SUGADD", time.Millisecond, true)
	m.ConnectionOpened("resp")
	m.ConnectionOpened("ws")
	m.ConnectionClosed("resp")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("city", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("city", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("city", "canceled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SaveTotal.WithLabelValues("city", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResponses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("get", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("FT.SUGGET", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("FT.SUGADD", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Connections.WithLabelValues("resp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Connections.WithLabelValues("ws")))
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, NewMetrics().Register(reg))
	assert.Error(t, NewMetrics().Register(reg))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFetch("city", time.Millisecond, nil)
		m.ObserveSave("city", nil)
		m.IncQuery("browse")
		m.IncStale()
		m.SessionOpened()
		m.SessionClosed()
		m.ObserveHTTP("get", 200)
		m.ObserveCommand("FT.SUGGET", time.Millisecond, false)
		m.ObserveCommand("FT.SUGADD", time.Millisecond, true)
		m.ConnectionOpened("resp")
		m.ConnectionOpened("ws")
		m.ConnectionClosed("resp")
	})
}
