// Package runlock enforces that only one sync process runs against a
// given profile cache directory at a time, using an
// exclusive, non-blocking flock on a lock file inside that directory.
package runlock

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
)

// ErrAlreadyRunning is returned by Acquire when another process
// already holds the lock.
var ErrAlreadyRunning = errors.New("runlock: another instance is already running against this profile")

// Lock holds an acquired file lock. Closing it releases the lock.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive lock on a file named "lock" inside dir.
// dir must already exist.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, "lock")
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, ErrAlreadyRunning
		}
		return nil, err
	}

	return &Lock{f: f}, nil
}

// Release closes the lock file, releasing the flock.
func (l *Lock) Release() error {
	return l.f.Close()
}
