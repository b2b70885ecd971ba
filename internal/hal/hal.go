// internal/hal/hal.go
//
// Package hal binds the UNI/O engine to real hosts: a spinning tick source
// on the monotonic clock, a critical-section guard, and SCIO pin backends.
package hal

import (
	"sync"

	"github.com/tamzrod/unio-bridge/internal/unio"
)

// Pin is a hardware-backed SCIO line.
//
// The unio.Line calls cannot fail, so backends keep the first I/O error
// and expose it through Err. Callers check Err after each transaction.
type Pin interface {
	unio.Line
	Err() error
	Close() error
}

// stickyErr keeps the first error it sees. Err may be called from any
// goroutine while a transaction is recording.
type stickyErr struct {
	mu  sync.Mutex
	err error
}

func (s *stickyErr) record(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *stickyErr) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
