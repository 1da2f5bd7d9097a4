package executor

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStartCapturesCombinedOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	sup := NewSupervisor()

	h, err := sup.Start(Command{JobID: "j1", Name: "combined", Line: "echo out; echo err 1>&2"}, logPath)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	code, err := h.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	h.Finish("completed", code)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{"Job ID: j1", "Command: echo out; echo err 1>&2", "out\n", "err\n", "Status: completed", "Exit Code: 0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q:\n%s", want, out)
		}
	}
}

func TestWaitNonzeroExit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	h, err := NewSupervisor().Start(Command{JobID: "j2", Name: "fail", Line: "exit 3"}, logPath)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	code, err := h.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
	h.Finish("failed", code)
}

func TestCommandNotFoundExitsNonzero(t *testing.T) {
	// sh itself starts fine; the bogus command surfaces as exit 127.
	logPath := filepath.Join(t.TempDir(), "job.log")
	h, err := NewSupervisor().Start(Command{JobID: "j3", Name: "missing", Line: "definitely-not-a-command-xyz"}, logPath)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	code, err := h.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 127 {
		t.Fatalf("exit code = %d, want 127", code)
	}
	h.Finish("failed", code)
}

func TestTerminateGroupKillsChild(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	h, err := NewSupervisor().Start(Command{JobID: "j4", Name: "sleeper", Line: "sleep 30"}, logPath)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := h.PID()
	if !Alive(pid) {
		t.Fatalf("child should be alive")
	}

	done := make(chan int, 1)
	go func() {
		code, _ := h.Wait()
		done <- code
	}()

	if err := TerminateGroup(pid, 2*time.Second); err != nil {
		t.Fatalf("TerminateGroup: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("child did not exit after terminate")
	}
	// Give the kernel a beat to finish reaping.
	time.Sleep(50 * time.Millisecond)
	if Alive(pid) {
		t.Fatalf("pid %d still alive after terminate", pid)
	}
}

func TestAlive(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Fatalf("own pid reported dead")
	}
	if Alive(0) || Alive(-1) {
		t.Fatalf("non-positive pids must report dead")
	}

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if Alive(cmd.Process.Pid) {
		t.Fatalf("reaped pid reported alive")
	}
}

func TestAppendNote(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	if err := os.WriteFile(logPath, []byte("header\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	AppendNote(logPath, "Job was stopped by user")
	data, _ := os.ReadFile(logPath)
	if !strings.Contains(string(data), "Job was stopped by user") {
		t.Fatalf("note missing: %q", data)
	}
}
