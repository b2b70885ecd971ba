// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	cfg "github.com/tamzrod/unio-bridge/internal/config"
	"github.com/tamzrod/unio-bridge/internal/unio"
)

type fakeMemory struct {
	data   []byte
	failAt int64 // -1: never
	err    error
	reads  int
}

func newFakeMemory(n int) *fakeMemory {
	m := &fakeMemory{data: make([]byte, n), failAt: -1}
	for i := range m.data {
		m.data[i] = byte(i)
	}
	return m
}

func (m *fakeMemory) ReadAt(p []byte, off int64) (int, error) {
	m.reads++
	if off == m.failAt {
		return 0, m.err
	}
	return copy(p, m.data[off:]), nil
}

func TestPollOnce_Success(t *testing.T) {
	c := Config{
		UnitID:   "u1",
		Interval: 1 * time.Second,
		Reads: []ReadBlock{
			{Address: 0, Length: 8},
			{Address: 32, Length: 20},
		},
	}

	p, err := New(c, newFakeMemory(128))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	res := p.PollOnce()
	if res.Err != nil {
		t.Fatalf("PollOnce err=%v", res.Err)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(res.Blocks))
	}
	b := res.Blocks[1]
	if b.Address != 32 || len(b.Data) != 20 || b.Data[0] != 32 || b.Data[19] != 51 {
		t.Fatalf("unexpected block: %+v", b)
	}
}

func TestPollOnce_Failure(t *testing.T) {
	c := Config{
		UnitID:   "u1",
		Interval: 1 * time.Second,
		Reads: []ReadBlock{
			{Address: 0, Length: 8},
			{Address: 32, Length: 10},
			{Address: 64, Length: 10},
		},
	}

	mem := newFakeMemory(128)
	mem.failAt = 32
	mem.err = unio.ErrNoAck

	p, err := New(c, mem)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	res := p.PollOnce()
	if res.Err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !errors.Is(res.Err, unio.ErrNoAck) {
		t.Fatalf("expected wrapped ErrNoAck, got %v", res.Err)
	}
	if res.RawErrorCode != unio.ErrNoAck.Code() {
		t.Fatalf("RawErrorCode=%d", res.RawErrorCode)
	}
	if res.Blocks != nil {
		t.Fatalf("expected no blocks on failure")
	}
	if mem.reads != 2 {
		t.Fatalf("expected cycle aborted after failing read, reads=%d", mem.reads)
	}
}

func TestPollOnce_ShortRead(t *testing.T) {
	c := Config{
		UnitID:   "u1",
		Interval: 1 * time.Second,
		Reads:    []ReadBlock{{Address: 120, Length: 16}},
	}

	p, err := New(c, newFakeMemory(128))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	if res := p.PollOnce(); res.Err == nil || res.RawErrorCode != 0 {
		t.Fatalf("expected short read error without bus code, got %v code=%d", res.Err, res.RawErrorCode)
	}
}

func TestNew_Rejects(t *testing.T) {
	good := Config{UnitID: "u1", Interval: time.Second, Reads: []ReadBlock{{Length: 1}}}
	mem := newFakeMemory(16)

	bad := []Config{
		{Interval: time.Second, Reads: good.Reads},
		{UnitID: "u1", Reads: good.Reads},
		{UnitID: "u1", Interval: time.Second},
	}
	for i, c := range bad {
		if _, err := New(c, mem); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	if _, err := New(good, nil); err == nil {
		t.Fatalf("expected error for nil memory")
	}
}

func TestBuild_FromUnitConfig(t *testing.T) {
	u := cfg.UnitConfig{
		ID:    "cal",
		Reads: []cfg.ReadConfig{{Address: 4, Length: 6}},
		Poll:  cfg.PollConfig{IntervalMs: 250},
	}

	p, err := Build(u, newFakeMemory(16))
	if err != nil {
		t.Fatalf("Build() err=%v", err)
	}
	if p.cfg.Interval != 250*time.Millisecond {
		t.Fatalf("interval=%v", p.cfg.Interval)
	}

	res := p.PollOnce()
	if res.UnitID != "cal" || res.Err != nil || len(res.Blocks[0].Data) != 6 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRun_EmitsUntilCancelled(t *testing.T) {
	c := Config{
		UnitID:   "u1",
		Interval: 5 * time.Millisecond,
		Reads:    []ReadBlock{{Address: 0, Length: 2}},
	}
	p, err := New(c, newFakeMemory(16))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult, 1)
	done := make(chan struct{})
	go func() {
		p.Run(ctx, out)
		close(done)
	}()

	select {
	case res := <-out:
		if res.Err != nil {
			t.Fatalf("unexpected err: %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatalf("no poll result emitted")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
