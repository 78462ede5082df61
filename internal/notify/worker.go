package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// ThanksNotificationArgs asks the dispatch collaborator to tell a helper they
// received a gratitude card. The job is inserted in the same transaction that
// creates the card, so a card never exists without a queued notification.
type ThanksNotificationArgs struct {
	TaskID     uuid.UUID `json:"task_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Message    string    `json:"message"`
}

func (ThanksNotificationArgs) Kind() string { return "thanks_notification" }

// ThanksNotificationWorker delivers queued gratitude notifications to the
// external dispatch collaborator. Delivery failures are returned so River
// retries; they never surface to the member who sent the card.
type ThanksNotificationWorker struct {
	river.WorkerDefaults[ThanksNotificationArgs]
	dispatchURL string
	httpClient  *http.Client
}

func NewThanksNotificationWorker(dispatchURL string) *ThanksNotificationWorker {
	return &ThanksNotificationWorker{
		dispatchURL: dispatchURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *ThanksNotificationWorker) Work(ctx context.Context, job *river.Job[ThanksNotificationArgs]) error {
	body, err := json.Marshal(job.Args)
	if err != nil {
		return fmt.Errorf("marshal thanks notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.dispatchURL+"/notify/thanks", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch collaborator unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("dispatch collaborator returned status %d", resp.StatusCode)
	}
	return nil
}
