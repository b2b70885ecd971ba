// internal/hal/guard.go
package hal

import (
	"runtime"
	"runtime/debug"
)

// ThreadGuard pins the calling goroutine to its OS thread and holds the
// garbage collector off for the duration of a bus transaction.
//
// It is not reentrant. The engine never nests transactions.
type ThreadGuard struct {
	gcPercent int
}

func (g *ThreadGuard) Lock() {
	runtime.LockOSThread()
	g.gcPercent = debug.SetGCPercent(-1)
}

func (g *ThreadGuard) Unlock() {
	debug.SetGCPercent(g.gcPercent)
	runtime.UnlockOSThread()
}
