package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// AuditLog is the append-only lifecycle event log next to the queue file.
// Appends rely on O_APPEND; the file is never rewritten, so no locking is
// needed beyond what the OS gives a single write.
type AuditLog struct {
	path string
}

func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

func (a *AuditLog) Path() string { return a.path }

// Append writes one timestamped line to the log.
func (a *AuditLog) Append(format string, args ...any) error {
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// Tail returns the last n lines of the log, oldest first. A missing log is
// an empty result, not an error.
func (a *AuditLog) Tail(n int) ([]string, error) {
	f, err := os.Open(a.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
