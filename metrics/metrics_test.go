package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilPipeline(t *testing.T) {
	var p *Pipeline
	assert.NotPanics(t, func() {
		p.Read(150)
		p.Submit(588, true)
		p.ReadError()
		p.WriteError()
		p.Reject()
		p.SetState(1)
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg)

	p.Read(150)
	p.Read(10)
	p.Submit(2940, false)
	p.Submit(2940, true)
	p.ReadError()
	p.SetState(2)

	assert.Equal(t, 160.0, testutil.ToFloat64(p.SectorsRead))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.ReadRuns))
	assert.Equal(t, 5880.0, testutil.ToFloat64(p.Frames))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Underruns))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.DeviceErrors.WithLabelValues("read")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.State))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg)
	p.Reject()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "playcdda_rejected_commands_total 1"))
}
