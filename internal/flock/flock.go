// Public domain.

// Package flock is an advisory, exclusive, cross process file lock with a
// bounded wait.
package flock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/zeebo/errs"
)

var (
	// Error is the class of errors from this package.
	Error = errs.Class("flock")

	// ErrTimeout is returned when a lock is still held by someone else
	// when the timeout expires.
	ErrTimeout = Error.New("lock timeout")

	errBusy = errors.New("lock busy")
)

// Options bound the wait for a lock.  The delay between attempts starts at
// Retry and doubles up to MaxRetry.
type Options struct {
	Timeout  time.Duration
	Retry    time.Duration
	MaxRetry time.Duration
}

// DefaultOptions wait up to 100s, polling from every 50ms.
var DefaultOptions = Options{
	Timeout:  100 * time.Second,
	Retry:    50 * time.Millisecond,
	MaxRetry: time.Second,
}

// Lock is a held lock.
type Lock struct {
	f      *os.File
	Path   string
	Waited time.Duration
}

// Acquire creates path if needed and locks it.
func Acquire(ctx context.Context, path string, opt Options) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	start := time.Now()
	delay := opt.Retry
	if delay <= 0 {
		delay = DefaultOptions.Retry
	}
	for {
		err := tryLock(f)
		if err == nil {
			return &Lock{f: f, Path: path, Waited: time.Since(start)}, nil
		}
		if !errors.Is(err, errBusy) {
			f.Close()
			return nil, Error.Wrap(err)
		}
		if time.Since(start) >= opt.Timeout {
			f.Close()
			return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, path, opt.Timeout)
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			f.Close()
			return nil, Error.Wrap(ctx.Err())
		case <-t.C:
		}
		if delay *= 2; opt.MaxRetry > 0 && delay > opt.MaxRetry {
			delay = opt.MaxRetry
		}
	}
}

// Release unlocks and closes the lock file.  The file is left in place.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := errs.Combine(unlock(l.f), l.f.Close())
	l.f = nil
	return Error.Wrap(err)
}
