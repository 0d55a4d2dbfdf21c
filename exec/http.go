// Package exec provides HTTP-backed executors for the three job families.
// Each executor POSTs the job identifier to a configured engine endpoint
// and decodes the engine's JSON result.
package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pacerhq/pacer/config"
	"github.com/pacerhq/pacer/errors"
	"github.com/pacerhq/pacer/scheduler"
)

const defaultTimeout = 5 * time.Minute

// Client invokes downstream execution engines over HTTP. It implements
// scheduler.WorkflowExecutor, scheduler.NotebookExecutor, and
// scheduler.SyncExecutor.
type Client struct {
	httpClient  *http.Client
	workflowURL string
	notebookURL string
	syncURL     string
}

// NewClient builds an executor client from the executors config section
func NewClient(cfg config.ExecutorsConfig) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		workflowURL: cfg.WorkflowURL,
		notebookURL: cfg.NotebookURL,
		syncURL:     cfg.SyncURL,
	}
}

// ExecuteWorkflow triggers one workflow run on the workflow engine
func (c *Client) ExecuteWorkflow(ctx context.Context, id string) (*scheduler.WorkflowResult, error) {
	var result scheduler.WorkflowResult
	if err := c.post(ctx, c.workflowURL, map[string]string{"workflow_id": id}, &result); err != nil {
		return nil, errors.Wrapf(err, "workflow %s", id)
	}
	return &result, nil
}

// ExecuteNotebook triggers one notebook run on the notebook engine
func (c *Client) ExecuteNotebook(ctx context.Context, scheduleID string) (*scheduler.NotebookResult, error) {
	var result scheduler.NotebookResult
	if err := c.post(ctx, c.notebookURL, map[string]string{"schedule_id": scheduleID}, &result); err != nil {
		return nil, errors.Wrapf(err, "notebook schedule %s", scheduleID)
	}
	return &result, nil
}

// ExecuteSync triggers one data-sync run on the sync engine
func (c *Client) ExecuteSync(ctx context.Context, scheduleID string) (*scheduler.SyncResult, error) {
	var result scheduler.SyncResult
	if err := c.post(ctx, c.syncURL, map[string]string{"schedule_id": scheduleID}, &result); err != nil {
		return nil, errors.Wrapf(err, "sync schedule %s", scheduleID)
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, url string, payload, result interface{}) error {
	if url == "" {
		return errors.New("executor endpoint not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Body is best-effort diagnostic context, capped to keep errors readable
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.New(fmt.Sprintf("engine returned %d: %s", resp.StatusCode, snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Wrap(err, "failed to decode engine response")
	}
	return nil
}
