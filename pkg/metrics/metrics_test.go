package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.IncTrigger("product_created", "delivered")
	m.ObserveDispatch("tokens", 3, 1)
	m.IncProbe(true)
	m.IncProbe(false)
	m.IncProbe(false)
	m.AddDeleted(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("product_created", "delivered")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.recipients.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recipients.WithLabelValues("failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.probes.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deleted))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.AddDeleted(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "notifier_tokens_deleted_total 1")
}
