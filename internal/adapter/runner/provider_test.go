package runner_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobswipe/engine/internal/adapter/runner"
	"github.com/jobswipe/engine/internal/config"
	"github.com/jobswipe/engine/pkg/models"
)

func testRequest() *models.AutomationRequest {
	return &models.AutomationRequest{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Job: models.JobReference{
			Title:    "Backend Engineer",
			Company:  "Acme",
			URL:      "https://boards.greenhouse.io/acme/jobs/1",
			ApplyURL: "https://boards.greenhouse.io/acme/jobs/1/apply",
		},
		Profile: models.ProfileSnapshot{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
		},
	}
}

func TestExecute_Success(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/execute", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"success":             true,
			"status":              "submitted",
			"confirmation_number": "GH-12345",
			"execution_time_ms":   4200,
		})
	}))
	defer srv.Close()

	p := runner.NewProvider("greenhouse", config.RunnerConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	req := testRequest()

	result, err := p.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "submitted", result.Message)
	assert.Equal(t, "GH-12345", result.Confirmation)
	assert.Equal(t, int64(4200), result.DurationMs)
	assert.Equal(t, "greenhouse", result.Platform)

	assert.Equal(t, "greenhouse", captured["platform"])
	assert.Equal(t, req.ID.String(), captured["request_id"])
	assert.Equal(t, req.Job.ApplyURL, captured["job_url"])
}

func TestExecute_IncludesCoverLetterOption(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	p := runner.NewProvider("lever", config.RunnerConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	req := testRequest()
	req.Options.CoverLetter = "Dear hiring team"

	_, err := p.Execute(context.Background(), req)
	require.NoError(t, err)

	opts, ok := captured["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Dear hiring team", opts["cover_letter"])
}

func TestExecute_RunnerReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "captcha challenge",
		})
	}))
	defer srv.Close()

	p := runner.NewProvider("linkedin", config.RunnerConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})

	result, err := p.Execute(context.Background(), testRequest())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "captcha challenge", result.Error)
	// No runner-reported duration; the client measures its own.
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
}

func TestExecute_Non200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "runner overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := runner.NewProvider("generic", config.RunnerConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})

	_, err := p.Execute(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestExecute_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := runner.NewProvider("generic", config.RunnerConfig{BaseURL: srv.URL, Timeout: 30 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Execute(ctx, testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
