package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NilWhenDisabled(t *testing.T) {
	assert.Nil(t, New(nil))
	assert.Nil(t, New(&Config{Enabled: false}))
}

func TestNilMetrics_RecordMethodsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTaskEnqueued("simulation_run")
		m.SetTasksByStatus("running", 3)
		m.RecordTaskDuration("simulation_run", "completed", time.Second)
		m.RecordSimulationTransition("starting", "running")
		m.RecordMemoryBatch("success")
		m.RecordMemoryEntryQueued()
		m.RecordMemoryEntitySaved("entity")
		m.RecordReportSection("Overview", false, time.Second)
		m.RecordIPCRoundTrip("get_status", 10*time.Millisecond)
		m.RecordIPCTimeout("get_status")
	})
}

func TestNew_RegistersCollectorsAndServesMetrics(t *testing.T) {
	m := New(&Config{Enabled: true})
	require.NotNil(t, m)

	m.RecordTaskEnqueued("simulation_run")
	m.RecordSimulationTransition("starting", "running")
	m.RecordReportSection("Overview", true, 2*time.Second)
	m.RecordIPCRoundTrip("get_status", 15*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "socialsim_task_enqueued_total")
	assert.Contains(t, body, "socialsim_simulation_transitions_total")
	assert.Contains(t, body, "socialsim_report_sections_written_total")
	assert.Contains(t, body, "socialsim_ipc_round_trip_seconds")
}

func TestHandler_NilMetricsServesUnavailable(t *testing.T) {
	var m *Metrics
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
