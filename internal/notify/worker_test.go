package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

func TestThanksNotificationWorker(t *testing.T) {
	var got ThanksNotificationArgs
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notify/thanks" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	args := ThanksNotificationArgs{TaskID: uuid.New(), ReceiverID: uuid.New(), Message: "thanks"}
	w := NewThanksNotificationWorker(srv.URL)
	if err := w.Work(context.Background(), &river.Job[ThanksNotificationArgs]{Args: args}); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if got.TaskID != args.TaskID || got.ReceiverID != args.ReceiverID || got.Message != args.Message {
		t.Errorf("delivered args: %+v", got)
	}
}

// A non-2xx response is an error so River retries the delivery.
func TestThanksNotificationWorker_RetryableFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	w := NewThanksNotificationWorker(srv.URL)
	job := &river.Job[ThanksNotificationArgs]{Args: ThanksNotificationArgs{TaskID: uuid.New()}}
	if err := w.Work(context.Background(), job); err == nil {
		t.Fatal("expected error on 503 so the job is retried")
	}
}
