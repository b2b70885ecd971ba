// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID   string
	Interval time.Duration
	Reads    []ReadBlock
}

// Poller is a dumb, clock-driven reader.
// The memory behind it does its own retries; the poller never does.
type Poller struct {
	cfg Config
	mem io.ReaderAt
}

// New creates a poller with immutable config.
func New(cfg Config, mem io.ReaderAt) (*Poller, error) {
	if cfg.UnitID == "" {
		return nil, errors.New("poller: unit id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(cfg.Reads) == 0 {
		return nil, errors.New("poller: at least one read block required")
	}
	if mem == nil {
		return nil, errors.New("poller: memory required")
	}
	return &Poller{cfg: cfg, mem: mem}, nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		UnitID: p.cfg.UnitID,
		At:     time.Now(),
	}

	blocks := make([]BlockResult, 0, len(p.cfg.Reads))

	for _, rb := range p.cfg.Reads {
		buf := make([]byte, rb.Length)
		n, err := p.mem.ReadAt(buf, int64(rb.Address))
		if err == nil && n != len(buf) {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			res.Err = fmt.Errorf("poller: read %#04x+%d: %w", rb.Address, rb.Length, err)
			res.RawErrorCode = errorCode(err)
			return res
		}
		blocks = append(blocks, BlockResult{Address: rb.Address, Data: buf})
	}

	// Commit only if all reads succeeded
	res.Blocks = blocks
	return res
}

func errorCode(err error) uint16 {
	var c interface{ Code() uint16 }
	if errors.As(err, &c) {
		return c.Code()
	}
	return 0
}
