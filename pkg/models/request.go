package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of an AutomationRequest.
type RequestStatus string

const (
	StatusQueued     RequestStatus = "queued"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
	StatusCancelled  RequestStatus = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ExecutionMode selects where an automation runs: on our servers or handed
// off to the user's desktop executor.
type ExecutionMode string

const (
	ModeServer  ExecutionMode = "server"
	ModeDesktop ExecutionMode = "desktop"
)

// AccountTier feeds the priority computed at intake.
type AccountTier string

const (
	TierFree    AccountTier = "free"
	TierPro     AccountTier = "pro"
	TierPremium AccountTier = "premium"
)

// JobReference identifies the job posting a request applies to.
type JobReference struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	URL      string `json:"url"`
	ApplyURL string `json:"apply_url,omitempty"`
}

// Target returns the URL automation should open, preferring the apply link.
func (j JobReference) Target() string {
	if j.ApplyURL != "" {
		return j.ApplyURL
	}
	return j.URL
}

// ProfileSnapshot is the applicant data frozen at intake. The live profile
// may change while the request waits; the snapshot is what gets submitted.
type ProfileSnapshot struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	ResumeURL string `json:"resume_url,omitempty"`
	LinkedIn  string `json:"linkedin_url,omitempty"`
}

// ExecutionOptions are caller-supplied knobs that influence scheduling and
// execution but never change after intake.
type ExecutionOptions struct {
	AccountTier AccountTier `json:"account_tier,omitempty"`
	Urgent      bool        `json:"urgent,omitempty"`
	CoverLetter string      `json:"cover_letter,omitempty"`
}

// ExecutionResult captures the outcome of one automation run. Present on a
// request exactly when its status is completed or failed.
type ExecutionResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Confirmation string `json:"confirmation,omitempty"`
	Error        string `json:"error,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
	Platform     string `json:"platform,omitempty"`
}

// AutomationRequest is one job-application automation task. The identity
// fields (user, job, profile, options) are immutable after intake; only
// status, mode and the timestamps move.
type AutomationRequest struct {
	ID             uuid.UUID        `json:"id"`
	UserID         uuid.UUID        `json:"user_id"`
	Job            JobReference     `json:"job"`
	Profile        ProfileSnapshot  `json:"profile"`
	Options        ExecutionOptions `json:"options"`
	Priority       int              `json:"priority"`
	Status         RequestStatus    `json:"status"`
	ExecutionMode  ExecutionMode    `json:"execution_mode"`
	DesktopHandoff bool             `json:"desktop_handoff"`
	RetryCount     int              `json:"retry_count"`
	QueuedAt       time.Time        `json:"queued_at"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	Result         *ExecutionResult `json:"result,omitempty"`
}

// Clone returns a deep copy so callers can't mutate store-owned state.
func (r *AutomationRequest) Clone() *AutomationRequest {
	c := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.Result != nil {
		res := *r.Result
		c.Result = &res
	}
	return &c
}

// ComputePriority derives the fixed dispatch priority from static intake
// signals. It is never re-evaluated while the request waits.
func ComputePriority(opts ExecutionOptions) int {
	p := 10
	switch opts.AccountTier {
	case TierPro:
		p = 30
	case TierPremium:
		p = 50
	}
	if opts.Urgent {
		p += 25
	}
	return p
}
