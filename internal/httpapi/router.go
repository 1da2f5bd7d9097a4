package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luohongchen1993/job-queue/internal/config"
	"github.com/luohongchen1993/job-queue/internal/queue"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

type router struct {
	cfg config.Config
	ctl *queue.Controller
}

// NewRouter builds the read-mostly status API: listing, lookup, enqueue,
// live log tailing, health and metrics.
func NewRouter(cfg config.Config, ctl *queue.Controller) http.Handler {
	r := &router{cfg: cfg, ctl: ctl}
	m := http.NewServeMux()
	m.HandleFunc("GET /healthz", r.handleHealth)
	m.HandleFunc("GET /jobs", r.handleList)
	m.HandleFunc("POST /jobs", r.handleAdd)
	m.HandleFunc("GET /jobs/{id}", r.handleJob)
	m.HandleFunc("GET /jobs/{id}/logs", r.handleJobLogs)
	m.Handle("GET /metrics", promhttp.Handler())
	return logging(m)
}

type addRequest struct {
	Command string `json:"command"`
	Name    string `json:"name,omitempty"`
}

func (r *router) handleAdd(w http.ResponseWriter, req *http.Request) {
	var body addRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Command == "" {
		respondWithError(w, http.StatusBadRequest, "command required")
		return
	}
	job, err := r.ctl.Add(body.Command, body.Name)
	if err != nil {
		slog.Error("enqueue failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to queue job")
		return
	}
	respondWithJSON(w, http.StatusAccepted, job)
}

func (r *router) handleList(w http.ResponseWriter, req *http.Request) {
	list, err := r.ctl.List()
	if err != nil {
		slog.Error("list failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to read queue")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (r *router) handleJob(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "job id required")
		return
	}
	job, err := r.ctl.Get(id)
	if errors.Is(err, queue.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		slog.Error("lookup failed", "job_id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to read queue")
		return
	}
	respondWithJSON(w, http.StatusOK, job)
}

func (r *router) handleHealth(w http.ResponseWriter, req *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleJobLogs upgrades to a websocket and tails the job's log file. The
// stream stays open until the client goes away.
func (r *router) handleJobLogs(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "job id required")
		return
	}
	if _, err := r.ctl.Get(id); errors.Is(err, queue.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "not found")
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	go func() {
		// Drain the connection; a read error means the client left.
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	err = tailFile(ctx, r.cfg.JobLogPath(id), 500*time.Millisecond, func(chunk []byte) error {
		return conn.WriteMessage(websocket.TextMessage, chunk)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("log tail ended", "job_id", id, "error", err)
	}
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
	})
}
