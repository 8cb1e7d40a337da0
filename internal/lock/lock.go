package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// DefaultName is the lock file created in the output directory when no
// explicit path is configured.
const DefaultName = ".archiver.lock"

type Lock struct {
	file *flock.Flock
}

// Acquire takes an exclusive lock on path so two monthly runs never write
// the same archives. The holder's pid and start time are written into the
// file and reported to a run that finds the lock taken.
func Acquire(path string) (*Lock, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), DefaultName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		msg := fmt.Sprintf("another archive run is already in progress (lock: %s)", path)
		if holder := Holder(path); holder != "" {
			msg += ", held by " + holder
		}
		return nil, errors.New(msg)
	}
	stamp := fmt.Sprintf("pid %d since %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(stamp), 0o600); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return &Lock{file: fl}, nil
}

// Holder returns what the current holder wrote into the lock file, or ""
// when it cannot be read.
func Holder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Release frees the lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Unlock()
}
