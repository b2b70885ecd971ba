// internal/poller/builder.go
package poller

import (
	"io"
	"time"

	cfg "github.com/tamzrod/unio-bridge/internal/config"
)

// Build constructs a Poller over the unit's memory.
// No retries, no loops, no semantics.
func Build(u cfg.UnitConfig, mem io.ReaderAt) (*Poller, error) {
	reads := make([]ReadBlock, 0, len(u.Reads))
	for _, r := range u.Reads {
		reads = append(reads, ReadBlock{
			Address: r.Address,
			Length:  r.Length,
		})
	}

	return New(
		Config{
			UnitID:   u.ID,
			Interval: time.Duration(u.Poll.IntervalMs) * time.Millisecond,
			Reads:    reads,
		},
		mem,
	)
}
