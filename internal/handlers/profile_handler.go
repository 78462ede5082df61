package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/helpwall/backend/internal/models"
	"github.com/helpwall/backend/internal/profile"
)

// Profile is the member view surface: counters, ledger history, settings.
type Profile interface {
	Stats(ctx context.Context, userID uuid.UUID) (*profile.Stats, error)
	Ledger(ctx context.Context, userID uuid.UUID) (*profile.LedgerView, error)
	Member(ctx context.Context, userID uuid.UUID) (*models.Member, error)
	SetNotifyEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error
}

// ThanksLister serves the thanks wall.
type ThanksLister interface {
	ListReceived(ctx context.Context, userID uuid.UUID) ([]*models.GratitudeCard, error)
	ListUnread(ctx context.Context, userID uuid.UUID) ([]*models.GratitudeCard, error)
}

// TaskLister serves the member's own posted tasks.
type TaskLister interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error)
}

// ProfileHandler serves the /v1/me endpoints.
type ProfileHandler struct {
	Profile Profile
	Thanks  ThanksLister
	Tasks   TaskLister
	Logger  *slog.Logger
}

// GET /v1/me
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	member, err := h.Profile.Member(r.Context(), callerID)
	if err != nil {
		h.writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// GET /v1/me/stats
func (h *ProfileHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	stats, err := h.Profile.Stats(r.Context(), callerID)
	if err != nil {
		h.writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /v1/me/ledger
func (h *ProfileHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	view, err := h.Profile.Ledger(r.Context(), callerID)
	if err != nil {
		h.writeProfileError(w, err)
		return
	}
	if view.Entries == nil {
		view.Entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, view)
}

// GET /v1/me/tasks
func (h *ProfileHandler) ListMyTasks(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	tasks, err := h.Tasks.ListByOwner(r.Context(), callerID)
	if err != nil {
		h.writeProfileError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GET /v1/me/thanks?unread=true
func (h *ProfileHandler) ListThanks(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	var (
		cards []*models.GratitudeCard
		err   error
	)
	if r.URL.Query().Get("unread") == "true" {
		cards, err = h.Thanks.ListUnread(r.Context(), callerID)
	} else {
		cards, err = h.Thanks.ListReceived(r.Context(), callerID)
	}
	if err != nil {
		h.writeProfileError(w, err)
		return
	}
	if cards == nil {
		cards = []*models.GratitudeCard{}
	}
	writeJSON(w, http.StatusOK, cards)
}

// PATCH /v1/me/settings

type settingsRequest struct {
	NotifyEnabled *bool `json:"notify_enabled"`
}

func (h *ProfileHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFromCtx(w, r)
	if !ok {
		return
	}
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.NotifyEnabled == nil {
		http.Error(w, `{"error":"nothing to update"}`, http.StatusBadRequest)
		return
	}
	if err := h.Profile.SetNotifyEnabled(r.Context(), callerID, *req.NotifyEnabled); err != nil {
		h.writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"notify_enabled": *req.NotifyEnabled})
}

func (h *ProfileHandler) writeProfileError(w http.ResponseWriter, err error) {
	if errors.Is(err, profile.ErrMemberNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	h.Logger.Error("profile operation failed", "error", err)
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}
