package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushEvent is the per-user payload posted to a push relay so an external
// channel (mobile push, mail digest) can surface the notification. The
// database fan-out stays authoritative either way.
type PushEvent struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Content        string `json:"content"`
}

type Relay interface {
	Name() string
	Ready() bool
	Acquire() bool
	Push(ctx context.Context, ev PushEvent) error
}

type HTTPRelay struct {
	name     string
	baseURL  string
	pushPath string
	client   *http.Client
	br       *MicroBreaker
}

func NewHTTPRelay(name, baseURL, pushPath string, timeoutMs, failThreshold, openForMs int) *HTTPRelay {
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPRelay{
		name:     name,
		baseURL:  baseURL,
		pushPath: pushPath,
		client:   &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:       NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (r *HTTPRelay) Name() string  { return r.name }
func (r *HTTPRelay) Ready() bool   { return r.br.Ready() }
func (r *HTTPRelay) Acquire() bool { return r.br.TryAcquire() }

func (r *HTTPRelay) Push(ctx context.Context, ev PushEvent) error {
	if err := r.post(ctx, r.pushPath, ev); err != nil {
		r.br.OnFailure()
		return err
	}

	r.br.OnSuccess()

	return nil
}

func (r *HTTPRelay) post(ctx context.Context, path string, ev PushEvent) error {
	b, _ := json.Marshal(ev)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("relay=%s path=%s status=%d", r.name, path, res.StatusCode)
	}

	return nil
}
