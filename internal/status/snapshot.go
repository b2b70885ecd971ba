// internal/status/snapshot.go
package status

import (
	"errors"

	"github.com/tamzrod/unio-bridge/internal/unio"
)

// Snapshot represents exactly what the writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16

	Present  uint16
	Retries  uint16
	Standbys uint16
	Failures uint16
}

// WithStats copies the driver counters into s, saturating at 65535.
func (s Snapshot) WithStats(st unio.Stats) Snapshot {
	s.Retries = saturate(st.Retries)
	s.Standbys = saturate(st.Standbys)
	s.Failures = saturate(st.Failures)
	return s
}

// ErrorCode extracts a uint16 code from an error without assuming
// concrete types. Errors that expose no code report ErrorGeneric.
// Retry exhaustion wraps its cause ahead of ErrRetries, so the cause's
// code wins.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return ErrorGeneric
}

func saturate(v int) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
