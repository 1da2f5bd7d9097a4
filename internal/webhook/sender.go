package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/luohongchen1993/job-queue/internal/jobs"
)

// Event is the payload POSTed on job lifecycle transitions.
type Event struct {
	JobID     string      `json:"job_id"`
	Name      string      `json:"name"`
	Status    jobs.Status `json:"status"`
	ExitCode  *int        `json:"exit_code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type Sender interface {
	Notify(ctx context.Context, url string, event Event) error
}

type httpSender struct {
	client      *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

func NewHTTPSender(timeout time.Duration, maxRetries int) Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 3
	}
	return &httpSender{
		client:      &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		baseBackoff: 500 * time.Millisecond,
	}
}

func (s *httpSender) Notify(ctx context.Context, url string, event Event) error {
	body, _ := json.Marshal(event)
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		resp, err := s.client.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			lastErr = errors.New(resp.Status)
			resp.Body.Close()
		}
		if err != nil {
			lastErr = err
		}
		// exponential backoff with a little jitter per attempt
		backoff := s.baseBackoff*(1<<attempt) + time.Duration(attempt*50)*time.Millisecond
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
