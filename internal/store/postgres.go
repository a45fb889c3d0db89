package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jobswipe/engine/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5. The job,
// profile, options and result fields are stored as jsonb documents.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ArchiveRequest upserts a terminal request. Archiving is at-least-once;
// the upsert keeps replays idempotent.
func (s *PostgresStore) ArchiveRequest(ctx context.Context, req *models.AutomationRequest) error {
	job, err := json.Marshal(req.Job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	profile, err := json.Marshal(req.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	options, err := json.Marshal(req.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	var result []byte
	if req.Result != nil {
		if result, err = json.Marshal(req.Result); err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO automation_requests
		   (id, user_id, job, profile, options, priority, status, execution_mode,
		    desktop_handoff, retry_count, result, queued_at, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   execution_mode = EXCLUDED.execution_mode,
		   desktop_handoff = EXCLUDED.desktop_handoff,
		   retry_count = EXCLUDED.retry_count,
		   result = EXCLUDED.result,
		   started_at = EXCLUDED.started_at,
		   completed_at = EXCLUDED.completed_at`,
		req.ID, req.UserID, job, profile, options, req.Priority,
		string(req.Status), string(req.ExecutionMode), req.DesktopHandoff, req.RetryCount,
		result, req.QueuedAt, req.StartedAt, req.CompletedAt)
	if err != nil {
		return fmt.Errorf("archive request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, id uuid.UUID) (*models.AutomationRequest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, job, profile, options, priority, status, execution_mode,
		        desktop_handoff, retry_count, result, queued_at, started_at, completed_at
		 FROM automation_requests WHERE id = $1`, id)

	r, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get archived request: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListRequests(ctx context.Context, filter RequestFilter) ([]*models.AutomationRequest, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	where := `WHERE ($1::uuid IS NULL OR user_id = $1)
	            AND ($2::text IS NULL OR status = $2)`
	var userID *uuid.UUID
	if filter.UserID != uuid.Nil {
		userID = &filter.UserID
	}
	var status *string
	if filter.Status != "" {
		st := string(filter.Status)
		status = &st
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM automation_requests `+where, userID, status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count archived requests: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, job, profile, options, priority, status, execution_mode,
		        desktop_handoff, retry_count, result, queued_at, started_at, completed_at
		 FROM automation_requests `+where+`
		 ORDER BY completed_at DESC NULLS LAST
		 LIMIT $3 OFFSET $4`,
		userID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list archived requests: %w", err)
	}
	defer rows.Close()

	var out []*models.AutomationRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan archived request: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func scanRequest(row pgx.Row) (*models.AutomationRequest, error) {
	var (
		r                             models.AutomationRequest
		status, mode                  string
		job, profile, options, result []byte
	)
	if err := row.Scan(&r.ID, &r.UserID, &job, &profile, &options, &r.Priority,
		&status, &mode, &r.DesktopHandoff, &r.RetryCount,
		&result, &r.QueuedAt, &r.StartedAt, &r.CompletedAt); err != nil {
		return nil, err
	}

	r.Status = models.RequestStatus(status)
	r.ExecutionMode = models.ExecutionMode(mode)
	if err := json.Unmarshal(job, &r.Job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	if err := json.Unmarshal(profile, &r.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	if err := json.Unmarshal(options, &r.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if len(result) > 0 {
		r.Result = &models.ExecutionResult{}
		if err := json.Unmarshal(result, r.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return &r, nil
}

var _ Store = (*PostgresStore)(nil)
