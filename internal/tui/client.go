// Package tui provides the terminal dashboard for watching workflow
// executions.
package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// ExecutionItem is a summary of an execution for the list view.
type ExecutionItem struct {
	ID       string `json:"id"`
	Workflow string `json:"workflow"`
	Status   string `json:"status"`
	Input    string `json:"input"`
}

// StepDetail is one step inside an execution detail.
type StepDetail struct {
	Agent  string `json:"agent"`
	Status string `json:"status"`
	Output string `json:"output"`
}

// ExecutionDetail is one full execution record.
type ExecutionDetail struct {
	ID       string       `json:"id"`
	Workflow string       `json:"workflow"`
	Status   string       `json:"status"`
	Input    string       `json:"input"`
	Error    string       `json:"error"`
	Steps    []StepDetail `json:"steps"`
}

// Client wraps HTTP calls to the Arbiter API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultClientTimeout},
	}
}

// ListExecutions fetches executions from the API.
func (c *Client) ListExecutions() ([]ExecutionItem, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/workflows")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var items []ExecutionItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetExecution fetches a single execution.
func (c *Client) GetExecution(id string) (*ExecutionDetail, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/workflows/" + id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var detail ExecutionDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Pause pauses an execution.
func (c *Client) Pause(id string) error {
	return c.post("/workflows/" + id + "/pause")
}

// Resume resumes an execution.
func (c *Client) Resume(id string) error {
	return c.post("/workflows/" + id + "/resume")
}

// Cancel cancels an execution.
func (c *Client) Cancel(id string) error {
	return c.post("/workflows/" + id + "/cancel")
}

func (c *Client) post(path string) error {
	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", string(body))
	}
	return nil
}
