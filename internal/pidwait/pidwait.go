// Package pidwait blocks until an arbitrary external process exits, then
// runs a follow-up command. It is a standalone utility and shares nothing
// with the job queue.
package pidwait

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

type Options struct {
	PID       int
	Command   string
	LogDir    string
	Interval  time.Duration // PID poll interval
	Heartbeat time.Duration // how often to log "still waiting"
}

// Run waits for opts.PID to disappear, then executes opts.Command with
// /bin/sh -c. Start, heartbeats, and completion all go to a dedicated
// timestamped log file; the follow-up command's output is appended there
// too. Returns the log path.
func Run(ctx context.Context, opts Options) (string, error) {
	if opts.PID <= 0 {
		return "", errors.New("pid must be positive")
	}
	if opts.Command == "" {
		return "", errors.New("follow-up command must not be empty")
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = time.Minute
	}
	if opts.LogDir == "" {
		opts.LogDir = "."
	}
	if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	logPath := filepath.Join(opts.LogDir,
		fmt.Sprintf("pidwait_%d_%s.log", opts.PID, time.Now().Format("20060102_150405")))
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create log: %w", err)
	}
	defer f.Close()

	logf := func(format string, args ...any) {
		fmt.Fprintf(f, "[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
	}

	logf("Waiting for PID %d, will then run: %s", opts.PID, opts.Command)
	slog.Info("pidwait started", "pid", opts.PID, "log", logPath)

	lastBeat := time.Now()
	for alive(opts.PID) {
		select {
		case <-ctx.Done():
			logf("Interrupted while waiting")
			return logPath, ctx.Err()
		case <-time.After(opts.Interval):
		}
		if time.Since(lastBeat) >= opts.Heartbeat {
			logf("Still waiting for PID %d", opts.PID)
			lastBeat = time.Now()
		}
	}

	logf("PID %d exited, running follow-up command", opts.PID)
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", opts.Command)
	cmd.Stdout = f
	cmd.Stderr = f
	err = cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			logf("Follow-up command failed to start: %v", err)
			return logPath, fmt.Errorf("run follow-up: %w", err)
		}
	}
	logf("Follow-up command finished with exit code %d", exitCode)
	slog.Info("pidwait finished", "pid", opts.PID, "exit_code", exitCode)
	return logPath, nil
}

func alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
