package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const notifyTimeout = 5 * time.Second

// HTTPNotifier calls the dispatch collaborator over HTTP.
type HTTPNotifier struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPNotifier(baseURL string) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: notifyTimeout},
	}
}

type notifyRequest struct {
	TaskID uuid.UUID `json:"task_id"`
	Lat    float64   `json:"lat"`
	Lng    float64   `json:"lng"`
	Target string    `json:"target"`
}

type notifyResponse struct {
	Notified int `json:"notified"`
}

func (n *HTTPNotifier) NotifyTaskCreated(ctx context.Context, taskID uuid.UUID, lat, lng float64, target string) (int, error) {
	body, err := json.Marshal(notifyRequest{TaskID: taskID, Lat: lat, Lng: lng, Target: target})
	if err != nil {
		return 0, fmt.Errorf("marshal notify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/notify/task-created", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("notify dispatch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("notify dispatch returned status %d", resp.StatusCode)
	}
	var out notifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode notify response: %w", err)
	}
	return out.Notified, nil
}
