package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("list_vehicles", OutcomeSuccess, 20*time.Millisecond)
	c.RecordRequest("list_vehicles", OutcomeSuccess, 30*time.Millisecond)
	c.RecordRequest("login", OutcomeAuth, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("list_vehicles", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("login", OutcomeAuth)))
	assert.Equal(t, 2, testutil.CollectAndCount(c.latency))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRequest("login", OutcomeSuccess, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "rentacar_api_requests_total"))
}
