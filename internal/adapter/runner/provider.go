// Package runner is the HTTP client for the external automation-runner
// service, which owns the browser sessions and form-filling scripts.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jobswipe/engine/internal/config"
	"github.com/jobswipe/engine/pkg/models"
)

// Provider implements models.ExecutionAdapter by delegating to the runner
// service, one instance per platform.
type Provider struct {
	platform string
	baseURL  string
	client   *http.Client
}

// NewProvider creates a runner-backed adapter for the given platform.
func NewProvider(platform string, cfg config.RunnerConfig) *Provider {
	return &Provider{
		platform: platform,
		baseURL:  cfg.BaseURL,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Provider) Name() string { return p.platform }

type executeRequest struct {
	Platform  string                 `json:"platform"`
	RequestID string                 `json:"request_id"`
	JobURL    string                 `json:"job_url"`
	Job       models.JobReference    `json:"job"`
	Profile   models.ProfileSnapshot `json:"profile"`
	Options   map[string]any         `json:"options,omitempty"`
}

type executeResponse struct {
	Success      bool   `json:"success"`
	Status       string `json:"status,omitempty"`
	Confirmation string `json:"confirmation_number,omitempty"`
	Error        string `json:"error,omitempty"`
	DurationMs   int64  `json:"execution_time_ms"`
}

// Execute submits the application through the runner service. The call can
// take tens of seconds; the caller bounds it through ctx.
func (p *Provider) Execute(ctx context.Context, req *models.AutomationRequest) (*models.ExecutionResult, error) {
	body := executeRequest{
		Platform:  p.platform,
		RequestID: req.ID.String(),
		JobURL:    req.Job.Target(),
		Job:       req.Job,
		Profile:   req.Profile,
	}
	if req.Options.CoverLetter != "" {
		body.Options = map[string]any{"cover_letter": req.Options.CoverLetter}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal execute request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build execute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("runner request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read runner response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runner returned status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var out executeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode runner response: %w", err)
	}

	durationMs := out.DurationMs
	if durationMs == 0 {
		durationMs = time.Since(start).Milliseconds()
	}
	return &models.ExecutionResult{
		Success:      out.Success,
		Message:      out.Status,
		Confirmation: out.Confirmation,
		Error:        out.Error,
		DurationMs:   durationMs,
		Platform:     p.platform,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ models.ExecutionAdapter = (*Provider)(nil)
