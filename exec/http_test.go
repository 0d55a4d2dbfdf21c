package exec

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacerhq/pacer/config"
)

func TestClient_ExecuteWorkflow(t *testing.T) {
	var gotBody map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":           true,
			"records_processed": 42,
			"records_updated":   7,
		})
	}))
	defer ts.Close()

	client := NewClient(config.ExecutorsConfig{WorkflowURL: ts.URL})
	result, err := client.ExecuteWorkflow(context.Background(), "wf-123")
	require.NoError(t, err)

	assert.Equal(t, "wf-123", gotBody["workflow_id"])
	assert.True(t, result.Success)
	assert.Equal(t, 42, result.RecordsProcessed)
	assert.Equal(t, 7, result.RecordsUpdated)
}

func TestClient_ExecuteNotebook(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":         true,
			"execution_id":    "exec-9",
			"cells_executed":  3,
			"cells_succeeded": 3,
		})
	}))
	defer ts.Close()

	client := NewClient(config.ExecutorsConfig{NotebookURL: ts.URL})
	result, err := client.ExecuteNotebook(context.Background(), "nb-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "exec-9", result.ExecutionID)
	assert.Equal(t, 3, result.CellsExecuted)
}

func TestClient_ExecuteSyncEngineFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream database unavailable", http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(config.ExecutorsConfig{SyncURL: ts.URL})
	_, err := client.ExecuteSync(context.Background(), "ds-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream database unavailable")
}

func TestClient_UnconfiguredEndpoint(t *testing.T) {
	client := NewClient(config.ExecutorsConfig{})
	_, err := client.ExecuteWorkflow(context.Background(), "wf-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestClient_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	client := NewClient(config.ExecutorsConfig{WorkflowURL: ts.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ExecuteWorkflow(ctx, "wf-1")
	assert.Error(t, err)
}
