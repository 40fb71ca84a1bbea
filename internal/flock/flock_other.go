// Public domain.

//go:build !unix

package flock

import "os"

// Without flock(2) the lock only serializes holders that share this
// process's lock table.

func tryLock(f *os.File) error { return localLock(f.Name()) }

func unlock(f *os.File) error { localUnlock(f.Name()); return nil }
