package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/jobswipe/engine/internal/api/middleware"
	"github.com/jobswipe/engine/internal/api/response"
	"github.com/jobswipe/engine/internal/engine"
	"github.com/jobswipe/engine/internal/store"
	"github.com/jobswipe/engine/pkg/models"
)

// RequestService is the engine surface the request handlers depend on.
type RequestService interface {
	Submit(ctx context.Context, req *models.AutomationRequest) (uuid.UUID, error)
	Status(ctx context.Context, id uuid.UUID) (*models.AutomationRequest, error)
	Cancel(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

// Archive is the durable history surface for listing and terminal lookups.
type Archive interface {
	GetRequest(ctx context.Context, id uuid.UUID) (*models.AutomationRequest, error)
	ListRequests(ctx context.Context, filter store.RequestFilter) ([]*models.AutomationRequest, int, error)
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/v1/requests.
func NewSubmitHandler(svc RequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing caller identity", nil)
			return
		}

		var body struct {
			Job     models.JobReference     `json:"job"`
			Profile models.ProfileSnapshot  `json:"profile"`
			Options models.ExecutionOptions `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if body.Job.Target() == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job.url is required", nil)
			return
		}
		if _, err := url.ParseRequestURI(body.Job.Target()); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job.url must be a valid URL", nil)
			return
		}
		if body.Profile.FirstName == "" || body.Profile.LastName == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "profile.first_name and profile.last_name are required", nil)
			return
		}
		if body.Profile.Email == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "profile.email is required", nil)
			return
		}
		if _, err := mail.ParseAddress(body.Profile.Email); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "profile.email must be a valid email address", nil)
			return
		}
		switch body.Options.AccountTier {
		case "", models.TierFree, models.TierPro, models.TierPremium:
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "options.account_tier must be free, pro or premium", nil)
			return
		}

		req := &models.AutomationRequest{
			UserID:  userID,
			Job:     body.Job,
			Profile: body.Profile,
			Options: body.Options,
		}

		id, err := svc.Submit(r.Context(), req)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to queue the request", nil)
			return
		}

		response.Accepted(w, map[string]any{
			"id":       id,
			"status":   models.StatusQueued,
			"priority": req.Priority,
		})
	}
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/v1/requests/{requestID}.
// Requests evicted from live memory are served from the archive.
func NewStatusHandler(svc RequestService, archive Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing caller identity", nil)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "requestID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "requestID must be a valid UUID", nil)
			return
		}

		req, err := svc.Status(r.Context(), id)
		if errors.Is(err, engine.ErrNotFound) && archive != nil {
			req, err = archive.GetRequest(r.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				err = engine.ErrNotFound
			}
		}
		switch {
		case errors.Is(err, engine.ErrNotFound):
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Request not found", nil)
			return
		case err != nil:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load the request", nil)
			return
		}

		if req.UserID != userID {
			// Don't leak existence of other users' requests.
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Request not found", nil)
			return
		}

		response.JSON(w, req)
	}
}

// NewCancelHandler returns an http.HandlerFunc for DELETE /api/v1/requests/{requestID}.
// Cancelling a processing or terminal request is not an error; the response
// reports cancelled=false.
func NewCancelHandler(svc RequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing caller identity", nil)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "requestID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "requestID must be a valid UUID", nil)
			return
		}

		cancelled, err := svc.Cancel(r.Context(), id, userID)
		switch {
		case errors.Is(err, engine.ErrNotFound):
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Request not found", nil)
			return
		case errors.Is(err, engine.ErrAccessDenied):
			response.Error(w, http.StatusForbidden, "FORBIDDEN", "Request belongs to another user", nil)
			return
		case err != nil:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to cancel the request", nil)
			return
		}

		response.JSON(w, map[string]any{
			"id":        id,
			"cancelled": cancelled,
		})
	}
}

// NewListHandler returns an http.HandlerFunc for GET /api/v1/requests, which
// pages the caller's archived requests.
func NewListHandler(archive Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing caller identity", nil)
			return
		}

		filter := store.RequestFilter{
			UserID: userID,
			Page:   queryInt(r, "page", 1),
			Limit:  queryInt(r, "limit", 20),
		}
		if s := r.URL.Query().Get("status"); s != "" {
			status := models.RequestStatus(s)
			switch status {
			case models.StatusCompleted, models.StatusFailed, models.StatusCancelled:
				filter.Status = status
			default:
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"status must be completed, failed or cancelled", nil)
				return
			}
		}

		requests, total, err := archive.ListRequests(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list requests", nil)
			return
		}
		if requests == nil {
			requests = []*models.AutomationRequest{}
		}

		response.Collection(w, requests, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
