package clients

import (
	"context"
	"net/http"
	"net/url"
)

// CodegenProject is a project in the code-generation service.
type CodegenProject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template,omitempty"`
}

// GenerateResult is the outcome of a code-generation request.
type GenerateResult struct {
	Success    bool              `json:"success"`
	Files      map[string]string `json:"files,omitempty"`
	Messages   []string          `json:"messages,omitempty"`
	TokensUsed int               `json:"tokens_used"`
}

// CommandResult is the outcome of a command run in a codegen project.
type CommandResult struct {
	Success  bool   `json:"success"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Codegen wraps HTTP calls to the code-generation service.
type Codegen struct {
	baseURL    string
	httpClient *http.Client
}

// NewCodegen creates a code-generation service client.
func NewCodegen(baseURL string) *Codegen {
	return &Codegen{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// CreateProject creates a project from a template.
func (c *Codegen) CreateProject(name, template string) (*CodegenProject, error) {
	var p CodegenProject
	err := c.post("/projects", map[string]string{"name": name, "template": template}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GenerateCode asks the service to generate code from a prompt.
func (c *Codegen) GenerateCode(prompt string) (*GenerateResult, error) {
	var res GenerateResult
	if err := c.post("/generate", map[string]string{"prompt": prompt}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// EditFile applies an edit instruction to a file in a project.
func (c *Codegen) EditFile(projectID, path, instruction string) error {
	req := map[string]string{"path": path, "instruction": instruction}
	return c.post("/projects/"+url.PathEscape(projectID)+"/edit", req, nil)
}

// ExecuteCommand runs a command inside a project.
func (c *Codegen) ExecuteCommand(projectID, cmd string) (*CommandResult, error) {
	var res CommandResult
	err := c.post("/projects/"+url.PathEscape(projectID)+"/exec", map[string]string{"cmd": cmd}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Health probes the service.
func (c *Codegen) Health(ctx context.Context) error {
	return health(ctx, c.httpClient, c.baseURL)
}

func (c *Codegen) post(path string, body, out interface{}) error {
	return doJSON(c.httpClient, http.MethodPost, c.baseURL+path, body, out)
}
