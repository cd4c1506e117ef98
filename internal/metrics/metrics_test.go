package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	m := New("test")

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.EventEmitted("message:send")
	m.RequestDone("query", "success")
	m.SessionTransition("login")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionsOpened))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsClosed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsEmitted.WithLabelValues("message:send")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("query", "success")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetrics_IsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.TransportDisconnected()
		m.SetConnectionState(2)
		m.EventEmitted("x")
		m.EventReceived("x")
		m.RequestDone("query", "error")
		m.SessionTransition("logout")
	})
}

func TestHandler_ServesText(t *testing.T) {
	m := New("test")
	m.EventReceived("message:new")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `test_realtime_events_received_total{event="message:new"} 1`)
}
