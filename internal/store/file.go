package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/luohongchen1993/job-queue/internal/jobs"
)

// ErrCorrupt means the queue file exists but cannot be decoded. It is fatal
// to the caller; the store never resets a queue it cannot read.
var ErrCorrupt = errors.New("queue file corrupt")

// FileStore persists the job list as a JSON array at a well-known path.
// Every mutation is a load -> modify -> save cycle inside an advisory file
// lock, so any number of processes (CLI callers plus the worker) can share
// the file without losing writes. Saves go through a temp file and rename,
// so readers never observe a partial write.
//
// The lock lives on a sibling .lock file rather than the queue file itself:
// the rename on save replaces the queue file's inode, which would silently
// detach any lock held on it.
type FileStore struct {
	path string
	lock *flock.Flock
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dir, "queue.json")
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the queue file location.
func (s *FileStore) Path() string { return s.path }

// Load reads the job list without taking the lock. The atomic save makes a
// bare read safe; it may just be stale by the time the caller looks at it.
func (s *FileStore) Load() ([]jobs.Job, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var list []jobs.Job
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	return list, nil
}

func (s *FileStore) save(list []jobs.Job) error {
	if list == nil {
		list = []jobs.Job{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".queue-*.json")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write temp queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close temp queue file: %w", err)
	}
	if err := os.Rename(name, s.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}

// Update runs fn as a single critical section: it takes the exclusive lock,
// loads the current list, applies fn, and saves whatever fn returns. If fn
// returns an error nothing is written. This is the only way to mutate the
// store.
func (s *FileStore) Update(fn func(list []jobs.Job) ([]jobs.Job, error)) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire queue lock: %w", err)
	}
	defer s.lock.Unlock()

	list, err := s.Load()
	if err != nil {
		return err
	}
	next, err := fn(list)
	if err != nil {
		return err
	}
	return s.save(next)
}
