package main

import (
	"net/http"

	"github.com/helpwall/backend/internal/handlers"
)

// RegisterV1Routes adds the /v1/ endpoints to the given mux. Every route runs
// behind the bearer-token middleware except the health probe.
func RegisterV1Routes(
	mux *http.ServeMux,
	th *handlers.TaskHandler,
	ph *handlers.ProfileHandler,
	auth func(http.Handler) http.Handler,
) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth(h))
	}

	// Task lifecycle
	handle("POST /v1/tasks", th.CreateTask)
	handle("GET /v1/tasks", th.ListOpenTasks)
	handle("GET /v1/tasks/{id}", th.GetTask)
	handle("PATCH /v1/tasks/{id}", th.EditTask)
	handle("DELETE /v1/tasks/{id}", th.DeleteTask)
	handle("POST /v1/tasks/{id}/apply", th.Apply)
	handle("POST /v1/tasks/{id}/approve", th.Approve)
	handle("POST /v1/tasks/{id}/accept", th.AcceptDirect)
	handle("POST /v1/tasks/{id}/complete", th.Complete)

	// Gratitude
	handle("POST /v1/tasks/{id}/thanks", th.SendThanks)
	handle("POST /v1/tasks/{id}/thanks/read", th.MarkThanksRead)
	handle("POST /v1/thanks/read-all", th.MarkAllThanksRead)

	// Profile
	handle("GET /v1/me", ph.GetMe)
	handle("GET /v1/me/stats", ph.GetStats)
	handle("GET /v1/me/tasks", ph.ListMyTasks)
	handle("GET /v1/me/ledger", ph.GetLedger)
	handle("GET /v1/me/thanks", ph.ListThanks)
	handle("PATCH /v1/me/settings", ph.UpdateSettings)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
