// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/unio-bridge/internal/poller"
)

// endpointClient is the exact contract the writer uses.
// IMPORTANT: There must be NO other version of this interface anywhere.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

type writerImpl struct {
	plan    Plan
	clients map[string]endpointClient
}

func New(plan Plan, clients map[string]endpointClient) Writer {
	return &writerImpl{
		plan:    plan,
		clients: clients,
	}
}

// Write delivers every block of a successful poll to every target.
// Failed polls are not delivered; status carries the failure.
func (w *writerImpl) Write(res poller.PollResult) error {
	if res.Err != nil {
		return nil
	}

	var errs []string

	for _, tgt := range w.plan.Targets {
		cli := w.clients[tgt.Endpoint]
		if cli == nil {
			errs = append(errs, fmt.Sprintf(
				"writer: missing client for endpoint %s",
				tgt.Endpoint,
			))
			continue
		}

		for _, b := range res.Blocks {
			dstAddr := tgt.Offset + b.Address/2

			if err := cli.WriteRegisters(tgt.UnitID, dstAddr, packBytes(b.Data)); err != nil {
				errs = append(errs, fmt.Sprintf(
					"writer: ep=%s unit=%d addr=%d err=%v",
					tgt.Endpoint, tgt.UnitID, dstAddr, err,
				))
			}
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}

	return nil
}

// packBytes stores two EEPROM bytes per register, big-endian.
// An odd trailing byte lands in the high half.
func packBytes(data []byte) []uint16 {
	out := make([]uint16, (len(data)+1)/2)
	for i, b := range data {
		if i%2 == 0 {
			out[i/2] = uint16(b) << 8
		} else {
			out[i/2] |= uint16(b)
		}
	}
	return out
}
