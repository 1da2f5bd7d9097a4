package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/luohongchen1993/job-queue/internal/config"
	"github.com/luohongchen1993/job-queue/internal/executor"
	"github.com/luohongchen1993/job-queue/internal/jobs"
	"github.com/luohongchen1993/job-queue/internal/store"
)

var (
	// ErrNotFound means no job with the given id exists.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidState means the job exists but its status forbids the
	// operation, e.g. removing a running job.
	ErrInvalidState = errors.New("operation not allowed in current job state")
)

// Controller implements the queue operations as atomic read-modify-write
// cycles against the shared store. It is safe to use from any number of
// processes at once.
type Controller struct {
	cfg   config.Config
	store *store.FileStore
	audit *store.AuditLog
}

func NewController(cfg config.Config) (*Controller, error) {
	fs, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:   cfg,
		store: fs,
		audit: store.NewAuditLog(cfg.AuditLogPath()),
	}, nil
}

func (c *Controller) Store() *store.FileStore { return c.store }
func (c *Controller) Audit() *store.AuditLog  { return c.audit }

// Add appends a new pending job and returns it. Ids are 8-char uuid
// prefixes; collisions are effectively impossible at this queue's scale,
// but Add rechecks under the lock anyway and redraws on a hit.
func (c *Controller) Add(command, name string) (jobs.Job, error) {
	if command == "" {
		return jobs.Job{}, errors.New("command must not be empty")
	}

	var job jobs.Job
	err := c.store.Update(func(list []jobs.Job) ([]jobs.Job, error) {
		id := newID()
		for taken(list, id) {
			id = newID()
		}
		if name == "" {
			name = "Job " + id
		}
		job = jobs.Job{
			ID:        id,
			Name:      name,
			Command:   command,
			Status:    jobs.StatusPending,
			CreatedAt: time.Now().UTC(),
		}
		return append(list, job), nil
	})
	if err != nil {
		return jobs.Job{}, err
	}

	jobs.JobsAddedTotal.Inc()
	if err := c.audit.Append("Added job %s: %s", job.ID, job.Name); err != nil {
		slog.Warn("audit append failed", "error", err)
	}
	slog.Info("job added", "job_id", job.ID, "command", job.Command)
	return job, nil
}

// Get is a read-only lookup.
func (c *Controller) Get(id string) (jobs.Job, error) {
	list, err := c.store.Load()
	if err != nil {
		return jobs.Job{}, err
	}
	for _, j := range list {
		if j.ID == id {
			return j, nil
		}
	}
	return jobs.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns every job in insertion order, oldest first.
func (c *Controller) List() ([]jobs.Job, error) {
	return c.store.Load()
}

// Remove deletes a job, allowed only while it is still pending. NotFound
// and InvalidState both surface as errors; CLI callers collapse them into
// a single failure message.
func (c *Controller) Remove(id string) error {
	err := c.store.Update(func(list []jobs.Job) ([]jobs.Job, error) {
		for i, j := range list {
			if j.ID != id {
				continue
			}
			if j.Status != jobs.StatusPending {
				return nil, fmt.Errorf("%w: job %s is %s", ErrInvalidState, id, j.Status)
			}
			return append(list[:i], list[i+1:]...), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	if err != nil {
		return err
	}
	if err := c.audit.Append("Removed job %s", id); err != nil {
		slog.Warn("audit append failed", "error", err)
	}
	return nil
}

// Stop terminates a running job. The worker owns the child handle but
// persists its PID, so the stopper signals the process group directly:
// SIGTERM, a bounded grace wait, then SIGKILL. The record flips to stopped
// under the store lock; the worker's finalize step sees the stopped status
// and leaves it alone.
func (c *Controller) Stop(id string) error {
	var pid int
	err := c.store.Update(func(list []jobs.Job) ([]jobs.Job, error) {
		for i, j := range list {
			if j.ID != id {
				continue
			}
			if !j.Status.CanTransition(jobs.StatusStopped) {
				return nil, fmt.Errorf("%w: job %s is %s", ErrInvalidState, id, j.Status)
			}
			pid = j.PID
			now := time.Now().UTC()
			code := jobs.ExitCodeStopped
			list[i].Status = jobs.StatusStopped
			list[i].CompletedAt = &now
			list[i].ExitCode = &code
			list[i].PID = 0
			return list, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	if err != nil {
		return err
	}

	if pid > 0 {
		if err := executor.TerminateGroup(pid, c.cfg.StopGrace); err != nil {
			slog.Warn("terminate failed", "job_id", id, "pid", pid, "error", err)
		}
	}
	executor.AppendNote(c.cfg.JobLogPath(id), "Job was stopped by user")
	jobs.JobsStoppedTotal.Inc()
	if err := c.audit.Append("Stopped job %s (PID: %d)", id, pid); err != nil {
		slog.Warn("audit append failed", "error", err)
	}
	slog.Info("job stopped", "job_id", id, "pid", pid)
	return nil
}

// Clear discards every job in a terminal state and reports how many went.
// Pending and running jobs keep their relative order.
func (c *Controller) Clear() (int, error) {
	removed := 0
	err := c.store.Update(func(list []jobs.Job) ([]jobs.Job, error) {
		kept := list[:0]
		for _, j := range list {
			if j.Status.Terminal() {
				removed++
				continue
			}
			kept = append(kept, j)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		if err := c.audit.Append("Cleared %d finished jobs", removed); err != nil {
			slog.Warn("audit append failed", "error", err)
		}
	}
	return removed, nil
}

func newID() string {
	return uuid.NewString()[:8]
}

func taken(list []jobs.Job, id string) bool {
	for _, j := range list {
		if j.ID == id {
			return true
		}
	}
	return false
}
