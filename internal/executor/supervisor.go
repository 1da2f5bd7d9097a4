package executor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Command is the opaque execution spec for one job. Line is passed to
// /bin/sh -c; that call in start() is the only place shell evaluation
// happens.
type Command struct {
	JobID string
	Name  string
	Line  string
}

// Handle wraps a spawned child. The worker uses it to wait for exit; the
// stop path never sees a Handle and goes through TerminateGroup with the
// persisted PID instead.
type Handle struct {
	cmd *exec.Cmd
	log *os.File
}

// Supervisor spawns job commands with combined output captured to a
// per-job log file.
type Supervisor struct{}

func NewSupervisor() *Supervisor { return &Supervisor{} }

// Start writes the log header, spawns the command in its own process
// group, and returns a Handle for it. On spawn failure the error is also
// recorded in the job log so the failure is inspectable afterwards.
func (s *Supervisor) Start(c Command, logPath string) (*Handle, error) {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create job log: %w", err)
	}

	header := fmt.Sprintf("Job ID: %s\nName: %s\nCommand: %s\nStarted: %s\n%s\n",
		c.JobID, c.Name, c.Line, time.Now().Format(time.RFC3339), strings.Repeat("=", 50))
	if _, err := f.WriteString(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write job log header: %w", err)
	}

	cmd := exec.Command("/bin/sh", "-c", c.Line)
	cmd.Stdout = f
	cmd.Stderr = f
	// Own process group so a stop can signal the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(f, "SPAWN ERROR: %v\n", err)
		f.Close()
		return nil, fmt.Errorf("spawn: %w", err)
	}
	return &Handle{cmd: cmd, log: f}, nil
}

// PID of the running child.
func (h *Handle) PID() int { return h.cmd.Process.Pid }

// Wait blocks until the child exits and returns its exit code. A child
// killed by a signal reports -1.
func (h *Handle) Wait() (int, error) {
	err := h.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("wait: %w", err)
}

// Finish appends the result footer and closes the log.
func (h *Handle) Finish(status string, exitCode int) {
	fmt.Fprintf(h.log, "%s\nStatus: %s\nExit Code: %d\nCompleted: %s\n",
		strings.Repeat("=", 50), status, exitCode, time.Now().Format(time.RFC3339))
	h.log.Close()
}

// TerminateGroup sends SIGTERM to the process group, waits up to grace for
// the leader to disappear, then SIGKILLs the group. It is callable from a
// process that does not own the child.
func TerminateGroup(pid int, grace time.Duration) error {
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("signal group %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !Alive(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill group %d: %w", pid, err)
	}
	return nil
}

// Alive probes a PID with signal 0. EPERM still means the process exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// AppendNote adds a line to an existing job log, used by processes other
// than the one holding the log open (e.g. the stop path).
func AppendNote(logPath, note string) {
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s\n", note)
}
