package statusd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoppen/gpuwatch/internal/config"
	"github.com/mkoppen/gpuwatch/internal/fleet"
	"github.com/mkoppen/gpuwatch/internal/gpu"
	"github.com/mkoppen/gpuwatch/internal/logger"
)

func testSnapshot() *fleet.Snapshot {
	snap := fleet.NewSnapshot([]config.Target{
		{Host: "gpu01", User: "ml"},
		{Host: "gpu02", User: "ml"},
		{Host: "gpu03", User: "ml"},
	})
	snap.Set(fleet.ProbeResult{
		Host:   "gpu01",
		Status: fleet.StatusSuccess,
		Devices: []gpu.Device{
			{Index: 0, Name: "NVIDIA A100", UtilizationPercent: 95, MemoryUsedMiB: 30000, MemoryTotalMiB: 40960, ProcessCount: 2},
			{Index: 1, Name: "NVIDIA A100", MemoryTotalMiB: 40960},
		},
		Duration:  120 * time.Millisecond,
		Completed: time.Now(),
	})
	snap.Set(fleet.ProbeResult{
		Host:   "gpu02",
		Status: fleet.StatusTimeout,
		Phase:  fleet.PhaseConnect,
		Detail: "Connection to gpu02 timed out",
	})
	return snap
}

func TestStatusEndpoint(t *testing.T) {
	s := New("127.0.0.1:0", testSnapshot(), logger.Noop())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Hosts []hostStatus `json:"hosts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Hosts, 3)

	// Order follows the fleet, not completion.
	assert.Equal(t, "gpu01", body.Hosts[0].Host)
	assert.Equal(t, "OK", body.Hosts[0].Status)
	require.Len(t, body.Hosts[0].GPUs, 2)
	assert.False(t, body.Hosts[0].GPUs[0].Free)
	assert.True(t, body.Hosts[0].GPUs[1].Free)
	assert.Equal(t, int64(40960), body.Hosts[0].GPUs[0].MemoryTotalMiB)

	assert.Equal(t, "Timeout", body.Hosts[1].Status)
	assert.Equal(t, "connect", body.Hosts[1].Phase)

	assert.Equal(t, "Connecting", body.Hosts[2].Status)
	assert.Empty(t, body.Hosts[2].GPUs)
}

func TestStatusRejectsPost(t *testing.T) {
	s := New("127.0.0.1:0", testSnapshot(), logger.Noop())

	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := New("127.0.0.1:0", testSnapshot(), logger.Noop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}
