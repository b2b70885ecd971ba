// cmd/uniobridge/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/unio-bridge/internal/config"
	"github.com/tamzrod/unio-bridge/internal/eeprom"
	"github.com/tamzrod/unio-bridge/internal/logging"
	"github.com/tamzrod/unio-bridge/internal/poller"
	"github.com/tamzrod/unio-bridge/internal/status"
	"github.com/tamzrod/unio-bridge/internal/unio"
	"github.com/tamzrod/unio-bridge/internal/writer"
)

func main() {
	log := logging.ConfigureRuntime("uniobridge")

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: uniobridge <config.yaml|config.toml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validation failed")
	}

	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Bus backend
	// --------------------

	bc := cfg.Bridge.Bus
	be, err := openBackend(bc, cfg.Bridge.Units)
	if err != nil {
		log.Fatal().Err(err).Str("backend", bc.Backend).Msg("bus open failed")
	}
	defer be.close()

	bitPeriod := time.Duration(bc.BitPeriodUs) * time.Microsecond
	var bus eeprom.Bus

	// --------------------
	// Build per-unit pipelines
	// --------------------

	for i, unit := range cfg.Bridge.Units {
		ulog := log.With().Str("unit", unit.ID).Logger()

		// ---- driver ----
		drv, err := unio.New(be.line, be.tick, unio.Config{
			BitPeriod:     bitPeriod,
			DeviceAddress: unit.Device.Address,
			Guard:         be.guard,
			Logger:        &ulog,
		})
		if err != nil {
			ulog.Fatal().Err(err).Msg("driver build failed")
		}

		// one reset for the whole line
		if i == 0 {
			bus.Do(drv, drv.Init)
		}

		var present bool
		bus.Do(drv, func() { present = drv.Presence() })
		if err := be.err(); err != nil {
			ulog.Fatal().Err(err).Msg("bus line error")
		}
		if !present {
			ulog.Warn().Uint8("address", unit.Device.Address).Msg("device did not acknowledge")
		}

		// ---- memory ----
		geo, err := eeprom.GeometryForSize(unit.Device.Size)
		if err != nil {
			ulog.Fatal().Err(err).Msg("memory geometry failed")
		}
		mem, err := eeprom.New(bus.Attach(drv), geo)
		if err != nil {
			ulog.Fatal().Err(err).Msg("memory build failed")
		}

		// ---- startup program ----
		program(ulog, unit, mem)

		// ---- poller ----
		p, err := poller.Build(unit, mem)
		if err != nil {
			ulog.Fatal().Err(err).Msg("poller build failed")
		}

		// ---- writer plan ----
		plan, err := writer.BuildPlan(unit)
		if err != nil {
			ulog.Fatal().Err(err).Msg("writer plan failed")
		}

		// ---- writer clients (DATA + STATUS) ----
		clients, closeWriters, err := writer.BuildEndpointClients(plan)
		if err != nil {
			ulog.Fatal().Err(err).Msg("writer clients failed")
		}
		defer closeWriters()

		dataWriter := writer.New(plan, clients)

		// Status writer (optional per unit)
		statusWriter, statusEnabled := writer.NewDeviceStatusWriter(plan, clients)

		// ---- channel between poller and writer ----
		out := make(chan poller.PollResult)

		stats := func() (st unio.Stats) {
			bus.Hold(func() { st = drv.Stats() })
			return st
		}
		lineErr := func() (err error) {
			bus.Hold(func() { err = be.err() })
			return err
		}

		o := &orchestrator{
			log:     ulog,
			data:    dataWriter,
			stats:   stats,
			line:    lineErr,
			present: present,
		}
		if statusEnabled {
			o.status = statusWriter
		}

		go o.run(ctx, out)

		// poller producer
		go p.Run(ctx, out)

		ulog.Info().
			Uint8("address", unit.Device.Address).
			Int("size", unit.Device.Size).
			Int("reads", len(unit.Reads)).
			Int("targets", len(plan.Targets)).
			Bool("status", statusEnabled).
			Msg("unit started")
	}

	// --------------------
	// Block until signalled
	// --------------------
	<-ctx.Done()
	log.Info().Msg("shutting down")
}

// program applies the unit's startup writes. A failed write is logged and
// the remaining writes still run.
func program(log zerolog.Logger, u config.UnitConfig, mem *eeprom.Memory) {
	for i, pc := range u.Program {
		data, err := pc.Bytes()
		if err != nil {
			log.Error().Err(err).Int("index", i).Msg("program data invalid")
			continue
		}

		n, err := mem.WriteAt(data, int64(pc.Address))
		if err != nil {
			log.Error().
				Err(err).
				Uint16("address", pc.Address).
				Int("written", n).
				Uint16("code", status.ErrorCode(err)).
				Msg("program write failed")
			continue
		}

		log.Info().Uint16("address", pc.Address).Int("bytes", n).Msg("programmed")
	}
}

// orchestrator owns the unit's status snapshot. Runner-owned state plus a
// 1Hz seconds ticker.
type orchestrator struct {
	log    zerolog.Logger
	data   writer.Writer
	status writer.StatusWriter // nil: disabled
	stats  func() unio.Stats
	line   func() error

	present bool
	snap    status.Snapshot
}

func (o *orchestrator) run(ctx context.Context, in <-chan poller.PollResult) {
	// Default snapshot state on start.
	o.snap = status.Snapshot{Health: status.HealthUnknown}
	if o.present {
		o.snap.Present = 1
	}

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert) if enabled.
	o.publish("start")

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-in:
			o.handle(res)

		case <-secTicker.C:
			// Tick 1 Hz while not OK.
			if o.snap.Health != status.HealthOK && o.snap.SecondsInError < 65535 {
				o.snap.SecondsInError++
				o.publish("seconds tick")
			}
		}
	}
}

func (o *orchestrator) handle(res poller.PollResult) {
	// --- data delivery ---
	if err := o.data.Write(res); err != nil {
		o.log.Error().Err(err).Msg("writer error")
	}

	if err := o.line(); err != nil {
		o.log.Error().Err(err).Msg("bus line error")
	}

	// --- status update (device-level truth) ---
	next := o.snap.WithStats(o.stats())

	if res.Err == nil {
		// Recovery / OK
		next.Health = status.HealthOK
		next.LastErrorCode = 0
		next.SecondsInError = 0
		next.Present = 1
	} else {
		o.log.Warn().Err(res.Err).Uint16("code", res.RawErrorCode).Msg("poll failed")

		next.Health = status.HealthError
		next.LastErrorCode = status.ErrorCode(res.Err)
		if errors.Is(res.Err, unio.ErrNoAck) {
			next.Present = 0
		}
		// NOTE: seconds_in_error increments on the 1Hz ticker only.
	}

	if next != o.snap {
		o.snap = next
		o.publish("update")
	}
}

func (o *orchestrator) publish(reason string) {
	if o.status == nil {
		return
	}
	if err := o.status.WriteStatus(o.snap); err != nil {
		o.log.Error().Err(err).Str("reason", reason).Msg("status write failed")
	}
}
