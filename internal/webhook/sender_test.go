package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luohongchen1993/job-queue/internal/jobs"
)

func TestHTTPSender_Success(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	code := 0
	s := NewHTTPSender(2*time.Second, 0)
	err := s.Notify(context.Background(), srv.URL, Event{
		JobID:     "a1b2c3d4",
		Name:      "Job a1b2c3d4",
		Status:    jobs.StatusCompleted,
		ExitCode:  &code,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if got.JobID != "a1b2c3d4" || got.Status != jobs.StatusCompleted {
		t.Fatalf("payload mismatch: %+v", got)
	}
	if got.ExitCode == nil || *got.ExitCode != 0 {
		t.Fatalf("exit code mismatch: %v", got.ExitCode)
	}
}

func TestHTTPSender_RetryThenSuccess(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender(2*time.Second, 5)
	err := s.Notify(context.Background(), srv.URL, Event{JobID: "2", Status: jobs.StatusRunning, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("expected eventual success, got error: %v", err)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", hits)
	}
}

func TestHTTPSender_ExhaustRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPSender(500*time.Millisecond, 1)
	err := s.Notify(context.Background(), srv.URL, Event{JobID: "3", Status: jobs.StatusFailed, Timestamp: time.Now()})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
}

func TestHTTPSender_ContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender(5*time.Second, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := s.Notify(ctx, srv.URL, Event{JobID: "4", Status: jobs.StatusRunning, Timestamp: time.Now()})
	if err == nil {
		t.Fatalf("expected context timeout error")
	}
}
