// cmd/uniobridge/main_test.go
package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/unio-bridge/internal/config"
	"github.com/tamzrod/unio-bridge/internal/eeprom"
	"github.com/tamzrod/unio-bridge/internal/poller"
	"github.com/tamzrod/unio-bridge/internal/status"
	"github.com/tamzrod/unio-bridge/internal/unio"
)

type fakeData struct{ writes int }

func (f *fakeData) Write(res poller.PollResult) error {
	f.writes++
	return nil
}

type fakeStatus struct{ snaps []status.Snapshot }

func (f *fakeStatus) WriteStatus(s status.Snapshot) error {
	f.snaps = append(f.snaps, s)
	return nil
}

func newTestOrchestrator(st *unio.Stats) (*orchestrator, *fakeData, *fakeStatus) {
	d, s := &fakeData{}, &fakeStatus{}
	o := &orchestrator{
		log:    zerolog.Nop(),
		data:   d,
		status: s,
		stats:  func() unio.Stats { return *st },
		line:   func() error { return nil },
		snap:   status.Snapshot{Health: status.HealthUnknown},
	}
	return o, d, s
}

func TestOrchestrator_ErrorThenRecovery(t *testing.T) {
	var st unio.Stats
	o, data, sw := newTestOrchestrator(&st)

	o.handle(poller.PollResult{})
	if o.snap.Health != status.HealthOK || o.snap.Present != 1 {
		t.Fatalf("expected OK and present, got %+v", o.snap)
	}

	st.Retries, st.Failures = 2, 1
	exhausted := fmt.Errorf("unio: read 0x0000: %w; %w after 3 attempts", unio.ErrNoAck, unio.ErrRetries)
	o.handle(poller.PollResult{Err: exhausted})

	if o.snap.Health != status.HealthError || o.snap.LastErrorCode != unio.ErrNoAck.Code() {
		t.Fatalf("unexpected error snapshot: %+v", o.snap)
	}
	if o.snap.Present != 0 || o.snap.Retries != 2 || o.snap.Failures != 1 {
		t.Fatalf("expected absent with counters, got %+v", o.snap)
	}

	o.snap.SecondsInError = 5
	o.handle(poller.PollResult{})
	if o.snap.Health != status.HealthOK || o.snap.LastErrorCode != 0 || o.snap.SecondsInError != 0 {
		t.Fatalf("expected recovery reset, got %+v", o.snap)
	}

	if data.writes != 3 {
		t.Fatalf("expected every result delivered, got %d", data.writes)
	}
	if len(sw.snaps) != 3 {
		t.Fatalf("expected 3 status writes, got %d", len(sw.snaps))
	}
}

func TestOrchestrator_UnchangedNotRepublished(t *testing.T) {
	var st unio.Stats
	o, _, sw := newTestOrchestrator(&st)

	o.handle(poller.PollResult{})
	o.handle(poller.PollResult{})

	if len(sw.snaps) != 1 {
		t.Fatalf("expected a single status write, got %d", len(sw.snaps))
	}
}

func TestOrchestrator_DecodeErrorKeepsPresence(t *testing.T) {
	var st unio.Stats
	o, _, _ := newTestOrchestrator(&st)

	o.handle(poller.PollResult{})
	o.handle(poller.PollResult{Err: errors.Join(unio.ErrDecode, unio.ErrRetries)})

	if o.snap.Present != 1 || o.snap.LastErrorCode != unio.ErrDecode.Code() {
		t.Fatalf("unexpected snapshot: %+v", o.snap)
	}
}

func TestSimBackend_ProgramAndPoll(t *testing.T) {
	cfg := &config.Config{
		Bridge: config.BridgeConfig{
			Units: []config.UnitConfig{
				{
					ID:      "u1",
					Device:  config.DeviceConfig{Size: 128},
					Program: []config.ProgramConfig{{Address: 0x0E, Data: "0102 0304"}},
					Reads:   []config.ReadConfig{{Address: 0x0E, Length: 4}},
				},
			},
		},
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	config.Normalize(cfg)
	unit := cfg.Bridge.Units[0]

	be, err := openBackend(cfg.Bridge.Bus, cfg.Bridge.Units)
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}

	drv, err := unio.New(be.line, be.tick, unio.Config{
		BitPeriod: time.Duration(cfg.Bridge.Bus.BitPeriodUs) * time.Microsecond,
		Guard:     be.guard,
	})
	if err != nil {
		t.Fatalf("unio.New: %v", err)
	}

	var bus eeprom.Bus
	bus.Do(drv, drv.Init)

	mem, err := eeprom.New(bus.Attach(drv), eeprom.Geometry11AA010)
	if err != nil {
		t.Fatalf("eeprom.New: %v", err)
	}

	// crosses the page at 0x10
	program(zerolog.Nop(), unit, mem)

	p, err := poller.Build(unit, mem)
	if err != nil {
		t.Fatalf("poller.Build: %v", err)
	}

	res := p.PollOnce()
	if res.Err != nil {
		t.Fatalf("PollOnce: %v", res.Err)
	}
	if got := res.Blocks[0].Data; string(got) != "\x01\x02\x03\x04" {
		t.Fatalf("read back % x", got)
	}
}
