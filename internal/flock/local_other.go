// Public domain.

//go:build !unix

package flock

import "sync"

var (
	localMu   sync.Mutex
	localHeld = map[string]bool{}
)

func localLock(name string) error {
	localMu.Lock()
	defer localMu.Unlock()
	if localHeld[name] {
		return errBusy
	}
	localHeld[name] = true
	return nil
}

func localUnlock(name string) {
	localMu.Lock()
	delete(localHeld, name)
	localMu.Unlock()
}
