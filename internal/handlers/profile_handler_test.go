package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/helpwall/backend/internal/models"
	"github.com/helpwall/backend/internal/profile"
)

type stubProfile struct {
	member *models.Member
	stats  *profile.Stats
	ledger *profile.LedgerView
	err    error
	setTo  *bool
}

func (s *stubProfile) Stats(context.Context, uuid.UUID) (*profile.Stats, error) {
	return s.stats, s.err
}
func (s *stubProfile) Ledger(context.Context, uuid.UUID) (*profile.LedgerView, error) {
	return s.ledger, s.err
}
func (s *stubProfile) Member(context.Context, uuid.UUID) (*models.Member, error) {
	return s.member, s.err
}
func (s *stubProfile) SetNotifyEnabled(_ context.Context, _ uuid.UUID, enabled bool) error {
	s.setTo = &enabled
	return nil
}

type stubThanksLister struct {
	received []*models.GratitudeCard
	unread   []*models.GratitudeCard
}

func (s *stubThanksLister) ListReceived(context.Context, uuid.UUID) ([]*models.GratitudeCard, error) {
	return s.received, nil
}
func (s *stubThanksLister) ListUnread(context.Context, uuid.UUID) ([]*models.GratitudeCard, error) {
	return s.unread, nil
}

type stubTaskLister struct{ tasks []*models.Task }

func (s *stubTaskLister) ListByOwner(context.Context, uuid.UUID) ([]*models.Task, error) {
	return s.tasks, nil
}

func newProfileMux(h *ProfileHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/me", h.GetMe)
	mux.HandleFunc("GET /v1/me/stats", h.GetStats)
	mux.HandleFunc("GET /v1/me/tasks", h.ListMyTasks)
	mux.HandleFunc("GET /v1/me/ledger", h.GetLedger)
	mux.HandleFunc("GET /v1/me/thanks", h.ListThanks)
	mux.HandleFunc("PATCH /v1/me/settings", h.UpdateSettings)
	return mux
}

func newProfileHandler(p *stubProfile) *ProfileHandler {
	return &ProfileHandler{
		Profile: p,
		Thanks:  &stubThanksLister{},
		Tasks:   &stubTaskLister{},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestGetMe(t *testing.T) {
	caller := uuid.New()
	h := newProfileHandler(&stubProfile{member: &models.Member{ID: caller, DisplayName: "Aki", CreditBalance: 3}})

	rec := doRequest(newProfileMux(h), http.MethodGet, "/v1/me", caller, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body)
	}
	var m models.Member
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.DisplayName != "Aki" || m.CreditBalance != 3 {
		t.Errorf("member: %+v", m)
	}
}

func TestGetMe_NotFound(t *testing.T) {
	h := newProfileHandler(&stubProfile{err: profile.ErrMemberNotFound})
	rec := doRequest(newProfileMux(h), http.MethodGet, "/v1/me", uuid.New(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	h := newProfileHandler(&stubProfile{stats: &profile.Stats{TasksPosted: 2, TasksHelped: 5, ThanksReceived: 4}})
	rec := doRequest(newProfileMux(h), http.MethodGet, "/v1/me/stats", uuid.New(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var s profile.Stats
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.TasksHelped != 5 {
		t.Errorf("stats: %+v", s)
	}
}

func TestGetLedger_EmptyEntriesServedAsArray(t *testing.T) {
	h := newProfileHandler(&stubProfile{ledger: &profile.LedgerView{Balance: 0, BalanceVerified: true}})
	rec := doRequest(newProfileMux(h), http.MethodGet, "/v1/me/ledger", uuid.New(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["entries"]) != "[]" {
		t.Errorf("entries: got %s, want []", raw["entries"])
	}
}

func TestListThanks_UnreadFilter(t *testing.T) {
	caller := uuid.New()
	h := newProfileHandler(&stubProfile{})
	h.Thanks = &stubThanksLister{
		received: []*models.GratitudeCard{{Message: "a"}, {Message: "b"}},
		unread:   []*models.GratitudeCard{{Message: "b"}},
	}
	mux := newProfileMux(h)

	rec := doRequest(mux, http.MethodGet, "/v1/me/thanks", caller, "")
	var all []*models.GratitudeCard
	if err := json.NewDecoder(rec.Body).Decode(&all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all thanks: got %d, want 2", len(all))
	}

	rec = doRequest(mux, http.MethodGet, "/v1/me/thanks?unread=true", caller, "")
	var unread []*models.GratitudeCard
	if err := json.NewDecoder(rec.Body).Decode(&unread); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(unread) != 1 || unread[0].Message != "b" {
		t.Errorf("unread thanks: %+v", unread)
	}
}

func TestListMyTasks(t *testing.T) {
	caller := uuid.New()
	h := newProfileHandler(&stubProfile{})
	h.Tasks = &stubTaskLister{tasks: []*models.Task{{ID: uuid.New(), OwnerID: caller, Title: "Fix bike"}}}

	rec := doRequest(newProfileMux(h), http.MethodGet, "/v1/me/tasks", caller, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var tasks []*models.Task
	if err := json.NewDecoder(rec.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Fix bike" {
		t.Errorf("tasks: %+v", tasks)
	}
}

func TestUpdateSettings(t *testing.T) {
	caller := uuid.New()
	p := &stubProfile{}
	h := newProfileHandler(p)
	mux := newProfileMux(h)

	rec := doRequest(mux, http.MethodPatch, "/v1/me/settings", caller, `{"notify_enabled":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body)
	}
	if p.setTo == nil || *p.setTo {
		t.Error("notify_enabled should be set to false")
	}

	rec = doRequest(mux, http.MethodPatch, "/v1/me/settings", caller, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty patch status: got %d, want 400", rec.Code)
	}
}
