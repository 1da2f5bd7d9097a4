package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/luohongchen1993/job-queue/internal/config"
	"github.com/luohongchen1993/job-queue/internal/executor"
	"github.com/luohongchen1993/job-queue/internal/jobs"
	"github.com/luohongchen1993/job-queue/internal/queue"
	"github.com/luohongchen1993/job-queue/internal/webhook"
)

// ErrAlreadyRunning means another worker holds the lease on this data dir.
var ErrAlreadyRunning = errors.New("another worker is already running")

// Worker is the single long-lived process that executes jobs sequentially:
// claim the oldest pending job, run it to completion, publish the result,
// repeat. Exactly one instance per data dir, enforced by a flock lease.
type Worker struct {
	cfg    config.Config
	ctl    *queue.Controller
	sup    *executor.Supervisor
	sender webhook.Sender
	lease  *flock.Flock
}

func New(cfg config.Config, ctl *queue.Controller) *Worker {
	return &Worker{
		cfg:    cfg,
		ctl:    ctl,
		sup:    executor.NewSupervisor(),
		sender: webhook.NewHTTPSender(10*time.Second, 3),
		lease:  flock.New(cfg.WorkerLockPath()),
	}
}

// Run blocks until ctx is cancelled. A single job's failure never stops the
// loop; only store corruption or losing the lease does.
func (w *Worker) Run(ctx context.Context) error {
	ok, err := w.lease.TryLock()
	if err != nil {
		return fmt.Errorf("acquire worker lease: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer w.lease.Unlock()

	if err := os.MkdirAll(w.cfg.LogsDir(), 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	if err := w.reconcile(); err != nil {
		return err
	}

	w.audit("Worker started")
	slog.Info("worker started", "data_dir", w.cfg.DataDir, "poll_interval", w.cfg.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			w.audit("Worker stopped")
			slog.Info("worker stopped")
			return nil
		default:
		}

		ran, err := w.runNext(ctx)
		if err != nil {
			return err
		}
		if ran {
			continue
		}
		select {
		case <-ctx.Done():
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// runNext claims and runs the oldest pending job. It returns false when the
// queue had nothing pending. The only errors it returns are store-level;
// job failures are absorbed into the record.
func (w *Worker) runNext(ctx context.Context) (bool, error) {
	var claimed jobs.Job
	found := false
	err := w.ctl.Store().Update(func(list []jobs.Job) ([]jobs.Job, error) {
		for i, j := range list {
			if j.Status != jobs.StatusPending {
				continue
			}
			now := time.Now().UTC()
			list[i].Status = jobs.StatusRunning
			list[i].StartedAt = &now
			claimed = list[i]
			found = true
			return list, nil
		}
		return list, nil
	})
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	w.runClaimed(ctx, claimed)
	return true, nil
}

// runClaimed takes a freshly claimed job through spawn, wait, and finalize.
// A stop may land at any point after the claim; the record then already says
// stopped and nothing may run, so the status is rechecked both before the
// spawn and when persisting the PID, and a child that slipped through is
// killed before the worker settles in to wait for it.
func (w *Worker) runClaimed(ctx context.Context, claimed jobs.Job) {
	if cur, err := w.ctl.Get(claimed.ID); err != nil || cur.Status != jobs.StatusRunning {
		if err != nil {
			slog.Warn("recheck failed", "job_id", claimed.ID, "error", err)
		}
		slog.Info("job stopped before spawn", "job_id", claimed.ID)
		return
	}

	w.audit("Starting job %s: %s", claimed.ID, claimed.Name)
	slog.Info("job starting", "job_id", claimed.ID, "command", claimed.Command)
	jobs.JobsStartedTotal.Inc()
	jobs.JobRunning.Set(1)
	defer jobs.JobRunning.Set(0)

	logPath := w.cfg.JobLogPath(claimed.ID)
	handle, err := w.sup.Start(executor.Command{
		JobID: claimed.ID,
		Name:  claimed.Name,
		Line:  claimed.Command,
	}, logPath)
	if err != nil {
		// Spawn failure: the job fails, the loop does not.
		slog.Error("job spawn failed", "job_id", claimed.ID, "error", err)
		final := w.finalize(claimed.ID, jobs.StatusFailed, jobs.ExitCodeSpawnErr)
		w.audit("Job %s failed to start: %v", claimed.ID, err)
		go w.notify(ctx, final)
		return
	}

	// Persist the PID only while the record still says running. A stop that
	// won the race saw PID 0 and signaled nothing, so the child is put down
	// here instead.
	pid := handle.PID()
	live := false
	uerr := w.ctl.Store().Update(func(list []jobs.Job) ([]jobs.Job, error) {
		for i, j := range list {
			if j.ID == claimed.ID && j.Status == jobs.StatusRunning {
				list[i].PID = pid
				live = true
			}
		}
		return list, nil
	})
	if uerr != nil {
		slog.Warn("persist pid failed", "job_id", claimed.ID, "error", uerr)
		live = true
	}
	if !live {
		if terr := executor.TerminateGroup(pid, w.cfg.StopGrace); terr != nil {
			slog.Warn("terminate failed", "job_id", claimed.ID, "pid", pid, "error", terr)
		}
		_, _ = handle.Wait()
		handle.Finish(string(jobs.StatusStopped), jobs.ExitCodeStopped)
		slog.Info("job stopped during spawn", "job_id", claimed.ID)
		return
	}

	claimed.PID = pid
	go w.notify(ctx, claimed)

	exitCode, werr := handle.Wait()
	if werr != nil {
		slog.Warn("wait error", "job_id", claimed.ID, "error", werr)
	}

	status := jobs.StatusCompleted
	if exitCode != 0 {
		status = jobs.StatusFailed
	}
	final := w.finalize(claimed.ID, status, exitCode)
	handle.Finish(string(final.Status), finalExitCode(final, exitCode))

	switch final.Status {
	case jobs.StatusCompleted:
		jobs.JobsCompletedTotal.Inc()
		w.audit("Job %s completed successfully", claimed.ID)
		slog.Info("job completed", "job_id", claimed.ID, "exit_code", exitCode)
	case jobs.StatusFailed:
		jobs.JobsFailedTotal.Inc()
		w.audit("Job %s failed with exit code %d", claimed.ID, exitCode)
		slog.Info("job failed", "job_id", claimed.ID, "exit_code", exitCode)
	case jobs.StatusStopped:
		// The stop path already updated the record and the audit log.
		slog.Info("job stopped externally", "job_id", claimed.ID)
	}
	go w.notify(ctx, final)
}

// finalize moves a running job to its terminal state. If a stop request got
// there first the record is already terminal; the worker yields and leaves
// it untouched.
func (w *Worker) finalize(id string, status jobs.Status, exitCode int) jobs.Job {
	var final jobs.Job
	err := w.ctl.Store().Update(func(list []jobs.Job) ([]jobs.Job, error) {
		for i, j := range list {
			if j.ID != id {
				continue
			}
			if !j.Status.CanTransition(status) {
				final = j
				return list, nil
			}
			now := time.Now().UTC()
			code := exitCode
			list[i].Status = status
			list[i].CompletedAt = &now
			list[i].ExitCode = &code
			list[i].PID = 0
			final = list[i]
			return list, nil
		}
		return list, nil
	})
	if err != nil {
		slog.Error("finalize failed", "job_id", id, "error", err)
	}
	return final
}

// reconcile runs once at startup. Any job left running by a dead worker
// (its recorded PID no longer alive) is resume-failed rather than silently
// completed; a running job whose PID is still alive is left alone.
func (w *Worker) reconcile() error {
	var dead []jobs.Job
	err := w.ctl.Store().Update(func(list []jobs.Job) ([]jobs.Job, error) {
		for i, j := range list {
			if j.Status != jobs.StatusRunning || executor.Alive(j.PID) {
				continue
			}
			now := time.Now().UTC()
			code := jobs.ExitCodeSpawnErr
			list[i].Status = jobs.StatusFailed
			list[i].CompletedAt = &now
			list[i].ExitCode = &code
			list[i].PID = 0
			dead = append(dead, list[i])
		}
		return list, nil
	})
	if err != nil {
		return err
	}
	for _, j := range dead {
		w.audit("Job %s was left running by a dead worker, marked failed", j.ID)
		executor.AppendNote(w.cfg.JobLogPath(j.ID), "Worker died while this job was running; marked failed on restart")
		slog.Warn("reconciled orphaned job", "job_id", j.ID)
	}
	return nil
}

func (w *Worker) notify(ctx context.Context, job jobs.Job) {
	if w.cfg.WebhookURL == "" || job.ID == "" {
		return
	}
	event := webhook.Event{
		JobID:     job.ID,
		Name:      job.Name,
		Status:    job.Status,
		ExitCode:  job.ExitCode,
		Timestamp: time.Now().UTC(),
	}
	if err := w.sender.Notify(ctx, w.cfg.WebhookURL, event); err != nil {
		slog.Warn("webhook notify failed", "job_id", job.ID, "error", err)
	}
}

func (w *Worker) audit(format string, args ...any) {
	if err := w.ctl.Audit().Append(format, args...); err != nil {
		slog.Warn("audit append failed", "error", err)
	}
}

func finalExitCode(final jobs.Job, fallback int) int {
	if final.ExitCode != nil {
		return *final.ExitCode
	}
	return fallback
}
