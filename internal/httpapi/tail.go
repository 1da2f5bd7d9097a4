package httpapi

import (
	"context"
	"errors"
	"io"
	"os"
	"time"
)

// tailFile streams a job log to emit: everything already written, then new
// bytes as they are appended, polling at the given interval. The worker
// writes the log from another process, so tailing the file is the only
// shared channel available. Returns when ctx is cancelled or emit fails.
func tailFile(ctx context.Context, path string, interval time.Duration, emit func([]byte) error) error {
	var f *os.File
	defer func() {
		if f != nil {
			f.Close()
		}
	}()

	buf := make([]byte, 32*1024)
	for {
		if f == nil {
			var err error
			f, err = os.Open(path)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
		if f != nil {
			for {
				n, err := f.Read(buf)
				if n > 0 {
					if werr := emit(buf[:n]); werr != nil {
						return werr
					}
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
