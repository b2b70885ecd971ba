// internal/writer/types.go
package writer

import (
	"time"

	"github.com/tamzrod/unio-bridge/internal/poller"
)

// TargetEndpoint is one target endpoint (TCP) and where region data lands.
type TargetEndpoint struct {
	TargetID uint32
	Endpoint string
	UnitID   uint8
	Offset   uint16 // register = offset + eeprom address/2
	Timeout  time.Duration
}

// StatusPlan places one device status block on a target.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Plan is the fully-built write plan for one unit.
type Plan struct {
	UnitID  string
	Targets []TargetEndpoint
	Status  []StatusPlan // empty: status disabled
}

// Writer writes poll snapshots into targets.
type Writer interface {
	Write(res poller.PollResult) error
}
