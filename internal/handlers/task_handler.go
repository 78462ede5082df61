package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/helpwall/backend/internal/gateway"
	"github.com/helpwall/backend/internal/gratitude"
	"github.com/helpwall/backend/internal/lifecycle"
	"github.com/helpwall/backend/internal/middleware"
	"github.com/helpwall/backend/internal/models"
	"github.com/helpwall/backend/internal/settlement"
)

// TaskGateway creates tasks and triggers the notification fan-out.
type TaskGateway interface {
	CreateTask(ctx context.Context, ownerID uuid.UUID, p gateway.CreateParams) (*models.Task, int, error)
}

// Lifecycle is the task state machine surface the handler needs.
type Lifecycle interface {
	Apply(ctx context.Context, taskID, candidateID uuid.UUID) error
	Approve(ctx context.Context, taskID, callerID, candidateID uuid.UUID) error
	AcceptDirect(ctx context.Context, taskID, helperID uuid.UUID) error
	Delete(ctx context.Context, taskID, callerID uuid.UUID) error
	UpdateDescription(ctx context.Context, taskID, callerID uuid.UUID, description string) error
	UpdateImageURL(ctx context.Context, taskID, callerID uuid.UUID, imageURL string) error
	UpdateExpectedMinutes(ctx context.Context, taskID, callerID uuid.UUID, minutes int) error
	Get(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	ListOpen(ctx context.Context) ([]*models.Task, error)
	Applicants(ctx context.Context, taskID uuid.UUID) ([]*models.Applicant, error)
}

// Settler performs the atomic completion settlement.
type Settler interface {
	Complete(ctx context.Context, taskID, callerID uuid.UUID) error
}

// Gratitude is the thanks-card surface the handler needs.
type Gratitude interface {
	SendThanks(ctx context.Context, taskID, callerID uuid.UUID, message string) (*models.GratitudeCard, error)
	MarkRead(ctx context.Context, taskID, callerID uuid.UUID) error
	MarkAllRead(ctx context.Context, callerID uuid.UUID) (int64, error)
	ForTask(ctx context.Context, taskID uuid.UUID) (*models.GratitudeCard, error)
}

// TaskHandler serves the /v1/tasks endpoints.
type TaskHandler struct {
	Gateway   TaskGateway
	Lifecycle Lifecycle
	Settler   Settler
	Gratitude Gratitude
	Logger    *slog.Logger
}

// --- POST /v1/tasks ---

type createTaskRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	ImageURL        string  `json:"image_url"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	ExpectedMinutes int     `json:"expected_minutes"`
	RequiresReview  bool    `json:"requires_review"`
	NotifyTarget    string  `json:"notify_target"`
}

type createTaskResponse struct {
	Task     *models.Task `json:"task"`
	Notified int          `json:"notified"`
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	task, notified, err := h.Gateway.CreateTask(r.Context(), callerID, gateway.CreateParams{
		Title:           req.Title,
		Description:     req.Description,
		ImageURL:        req.ImageURL,
		Lat:             req.Lat,
		Lng:             req.Lng,
		ExpectedMinutes: req.ExpectedMinutes,
		RequiresReview:  req.RequiresReview,
		NotifyTarget:    req.NotifyTarget,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTaskResponse{Task: task, Notified: notified})
}

// --- GET /v1/tasks ---

func (h *TaskHandler) ListOpenTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Lifecycle.ListOpen(r.Context())
	if err != nil {
		h.Logger.Error("list open tasks", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- GET /v1/tasks/{id} ---

type taskDetailResponse struct {
	Task       *models.Task          `json:"task"`
	Applicants []*models.Applicant   `json:"applicants,omitempty"`
	Thanks     *models.GratitudeCard `json:"thanks,omitempty"`
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}
	task, err := h.Lifecycle.Get(r.Context(), taskID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	detail := taskDetailResponse{Task: task}
	if task.RequiresReview {
		applicants, err := h.Lifecycle.Applicants(r.Context(), taskID)
		if err != nil {
			h.Logger.Error("list applicants", "task_id", taskID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		detail.Applicants = applicants
	}
	if task.Status == models.TaskStatusCompleted {
		card, err := h.Gratitude.ForTask(r.Context(), taskID)
		if err != nil && !errors.Is(err, gratitude.ErrCardNotFound) {
			h.Logger.Error("load thanks card", "task_id", taskID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		detail.Thanks = card
	}
	writeJSON(w, http.StatusOK, detail)
}

// --- PATCH /v1/tasks/{id} ---

type editTaskRequest struct {
	Description     *string `json:"description"`
	ImageURL        *string `json:"image_url"`
	ExpectedMinutes *int    `json:"expected_minutes"`
}

func (h *TaskHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}
	var req editTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Description == nil && req.ImageURL == nil && req.ExpectedMinutes == nil {
		http.Error(w, `{"error":"nothing to update"}`, http.StatusBadRequest)
		return
	}
	if req.Description != nil {
		if err := h.Lifecycle.UpdateDescription(r.Context(), taskID, callerID, *req.Description); err != nil {
			h.writeError(w, err)
			return
		}
	}
	if req.ImageURL != nil {
		if err := h.Lifecycle.UpdateImageURL(r.Context(), taskID, callerID, *req.ImageURL); err != nil {
			h.writeError(w, err)
			return
		}
	}
	if req.ExpectedMinutes != nil {
		if err := h.Lifecycle.UpdateExpectedMinutes(r.Context(), taskID, callerID, *req.ExpectedMinutes); err != nil {
			h.writeError(w, err)
			return
		}
	}
	task, err := h.Lifecycle.Get(r.Context(), taskID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- DELETE /v1/tasks/{id} ---

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.Lifecycle.Delete(r.Context(), taskID, callerID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- POST /v1/tasks/{id}/apply ---

func (h *TaskHandler) Apply(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.Lifecycle.Apply(r.Context(), taskID, callerID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// --- POST /v1/tasks/{id}/approve ---

type approveRequest struct {
	CandidateID string `json:"candidate_id"`
}

func (h *TaskHandler) Approve(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		http.Error(w, `{"error":"invalid candidate_id"}`, http.StatusBadRequest)
		return
	}
	if err := h.Lifecycle.Approve(r.Context(), taskID, callerID, candidateID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.TaskStatusInProgress})
}

// --- POST /v1/tasks/{id}/accept ---

func (h *TaskHandler) AcceptDirect(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.Lifecycle.AcceptDirect(r.Context(), taskID, callerID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.TaskStatusInProgress})
}

// --- POST /v1/tasks/{id}/complete ---

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.Settler.Complete(r.Context(), taskID, callerID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.TaskStatusCompleted})
}

// --- POST /v1/tasks/{id}/thanks ---

type sendThanksRequest struct {
	Message string `json:"message"`
}

func (h *TaskHandler) SendThanks(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}
	var req sendThanksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	card, err := h.Gratitude.SendThanks(r.Context(), taskID, callerID, req.Message)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// --- POST /v1/tasks/{id}/thanks/read ---

func (h *TaskHandler) MarkThanksRead(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.Gratitude.MarkRead(r.Context(), taskID, callerID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_read": true})
}

// --- POST /v1/thanks/read-all ---

func (h *TaskHandler) MarkAllThanksRead(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	n, err := h.Gratitude.MarkAllRead(r.Context(), callerID)
	if err != nil {
		h.Logger.Error("mark all thanks read", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

// --- helpers ---

// writeError maps domain sentinels onto HTTP statuses: validation 400,
// authorization 403, missing 404, state conflicts 409, settlement failures 500.
func (h *TaskHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrTitleRequired),
		errors.Is(err, gateway.ErrInvalidExpectedMinutes),
		errors.Is(err, gateway.ErrInvalidLocation),
		errors.Is(err, gateway.ErrInvalidNotifyTarget),
		errors.Is(err, lifecycle.ErrInvalidExpectedMinutes),
		errors.Is(err, gratitude.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrNotOwner),
		errors.Is(err, lifecycle.ErrOwnTask),
		errors.Is(err, settlement.ErrNotOwner),
		errors.Is(err, gratitude.ErrNotOwner),
		errors.Is(err, gratitude.ErrNotReceiver):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrTaskNotFound),
		errors.Is(err, settlement.ErrTaskNotFound),
		errors.Is(err, gratitude.ErrTaskNotFound),
		errors.Is(err, gratitude.ErrCardNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrTaskAlreadyAssigned),
		errors.Is(err, lifecycle.ErrTaskNotOpen),
		errors.Is(err, lifecycle.ErrTaskNotOpenForApplications),
		errors.Is(err, lifecycle.ErrAlreadyApplied),
		errors.Is(err, lifecycle.ErrReviewRequired),
		errors.Is(err, lifecycle.ErrNotApplicant),
		errors.Is(err, settlement.ErrTaskNotInProgress),
		errors.Is(err, gratitude.ErrTaskNotCompleted),
		errors.Is(err, gratitude.ErrGratitudeAlreadySent):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.Logger.Error("task operation failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func callerFromCtx(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id := middleware.UserIDFromCtx(r.Context())
	if id == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

func taskIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
