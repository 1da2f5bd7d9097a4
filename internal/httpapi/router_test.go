package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luohongchen1993/job-queue/internal/config"
	"github.com/luohongchen1993/job-queue/internal/jobs"
	"github.com/luohongchen1993/job-queue/internal/queue"
)

func newTestServer(t *testing.T) (*httptest.Server, config.Config, *queue.Controller) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	ctl, err := queue.NewController(cfg)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	srv := httptest.NewServer(NewRouter(cfg, ctl))
	t.Cleanup(srv.Close)
	return srv, cfg, ctl
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAddAndList(t *testing.T) {
	srv, _, ctl := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"command": "echo hi", "name": "greeting"})
	resp, err := http.Post(srv.URL+"/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var created jobs.Job
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Status != jobs.StatusPending || created.Name != "greeting" {
		t.Fatalf("unexpected job: %+v", created)
	}

	// Visible both through the API and through a direct controller.
	listResp, err := http.Get(srv.URL + "/jobs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer listResp.Body.Close()
	var list []jobs.Job
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
	if _, err := ctl.Get(created.ID); err != nil {
		t.Fatalf("job not in store: %v", err)
	}
}

func TestAddRejectsBadInput(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, body := range []string{"{not json", `{"name":"x"}`} {
		resp, err := http.Post(srv.URL+"/jobs", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestGetJobNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/jobs/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMetricsExposed(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestLogStreamTailsFile(t *testing.T) {
	srv, cfg, ctl := newTestServer(t)
	job, err := ctl.Add("echo hi", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := os.MkdirAll(cfg.LogsDir(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	logPath := cfg.JobLogPath(job.ID)
	if err := os.WriteFile(logPath, []byte("first line\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/jobs/" + job.ID + "/logs"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(msg), "first line") {
		t.Fatalf("unexpected first chunk: %q", msg)
	}

	// Appends from another writer show up on the stream.
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("second line\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read appended: %v", err)
	}
	if !strings.Contains(string(msg), "second line") {
		t.Fatalf("unexpected appended chunk: %q", msg)
	}
}

func TestLogStreamUnknownJob(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/jobs/nope/logs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
