package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPExecutor sends prompts to a configured agent backend over HTTP.
type HTTPExecutor struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPExecutor creates an executor posting to baseURL/execute.
func NewHTTPExecutor(baseURL string) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Execute sends the prompt and returns the backend's text response.
func (e *HTTPExecutor) Execute(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("agent backend error (%d): %s", resp.StatusCode, string(data))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Text, nil
}

// NewEchoExecutor returns an executor that acknowledges prompts without a
// backend. Used when no agent backend is configured, so workflows stay
// inspectable in local runs.
func NewEchoExecutor() Executor {
	return ExecutorFunc(func(ctx context.Context, prompt string) (string, error) {
		head := prompt
		if idx := len(head); idx > 120 {
			head = head[:120] + "…"
		}
		return fmt.Sprintf("[no agent backend configured] %s", head), nil
	})
}
