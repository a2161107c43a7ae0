// Package clients provides HTTP clients for the external collaborator
// services: the knowledge/task service and the code-generation service.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the default timeout for collaborator requests.
const DefaultTimeout = 15 * time.Second

// SearchHit is one knowledge-base search result.
type SearchHit struct {
	Document   string   `json:"document"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights,omitempty"`
}

// Document is an ingested knowledge-base document.
type Document struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Project is a knowledge-service project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task is a knowledge-service task.
type Task struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
}

// Knowledge wraps HTTP calls to the knowledge/task service.
type Knowledge struct {
	baseURL    string
	httpClient *http.Client
}

// NewKnowledge creates a knowledge-service client.
func NewKnowledge(baseURL string) *Knowledge {
	return &Knowledge{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Search queries the knowledge base.
func (c *Knowledge) Search(query string) ([]SearchHit, error) {
	var hits []SearchHit
	err := c.get("/search?q="+url.QueryEscape(query), &hits)
	return hits, err
}

// Ingest stores content in the knowledge base.
func (c *Knowledge) Ingest(content, docType string, metadata map[string]string) (*Document, error) {
	req := map[string]interface{}{
		"content":  content,
		"type":     docType,
		"metadata": metadata,
	}
	var doc Document
	if err := c.post("/ingest", req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateProject creates a project.
func (c *Knowledge) CreateProject(name string) (*Project, error) {
	var p Project
	if err := c.post("/projects", map[string]string{"name": name}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects lists all projects.
func (c *Knowledge) ListProjects() ([]Project, error) {
	var ps []Project
	err := c.get("/projects", &ps)
	return ps, err
}

// CreateTask creates a task in a project.
func (c *Knowledge) CreateTask(projectID, title string) (*Task, error) {
	var t Task
	err := c.post("/tasks", map[string]string{"project_id": projectID, "title": title}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask fetches a task by id.
func (c *Knowledge) GetTask(taskID string) (*Task, error) {
	var t Task
	if err := c.get("/tasks/"+url.PathEscape(taskID), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTaskStatus updates the status of a task.
func (c *Knowledge) UpdateTaskStatus(taskID, status string) error {
	return c.post("/tasks/"+url.PathEscape(taskID)+"/status", map[string]string{"status": status}, nil)
}

// ListTasks lists tasks, optionally filtered by project.
func (c *Knowledge) ListTasks(projectID string) ([]Task, error) {
	path := "/tasks"
	if projectID != "" {
		path += "?project_id=" + url.QueryEscape(projectID)
	}
	var ts []Task
	err := c.get(path, &ts)
	return ts, err
}

// Health probes the service.
func (c *Knowledge) Health(ctx context.Context) error {
	return health(ctx, c.httpClient, c.baseURL)
}

func (c *Knowledge) get(path string, out interface{}) error {
	return doJSON(c.httpClient, http.MethodGet, c.baseURL+path, nil, out)
}

func (c *Knowledge) post(path string, body, out interface{}) error {
	return doJSON(c.httpClient, http.MethodPost, c.baseURL+path, body, out)
}

// doJSON performs a JSON request and decodes the response into out when
// out is non-nil. Responses >= 400 become errors carrying the body.
func doJSON(client *http.Client, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func health(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
