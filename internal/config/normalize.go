// internal/config/normalize.go
package config

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	b := &cfg.Bridge.Bus
	if b.Backend == "" {
		b.Backend = DefaultBackend
	}
	if b.BitPeriodUs == 0 {
		b.BitPeriodUs = DefaultBitPeriodUs
	}

	for ui := range cfg.Bridge.Units {
		u := &cfg.Bridge.Units[ui]

		if u.Device.Address == 0 {
			u.Device.Address = DefaultDeviceAddress
		}
		if u.Device.Size == 0 {
			u.Device.Size = DefaultDeviceSize
		}
		if u.Poll.IntervalMs == 0 {
			u.Poll.IntervalMs = DefaultIntervalMs
		}

		for ti := range u.Targets {
			if u.Targets[ti].TimeoutMs == 0 {
				u.Targets[ti].TimeoutMs = DefaultTimeoutMs
			}
		}

		// ------------------------------------------------------------
		// DEVICE STATUS BLOCK NORMALIZATION (OPT-IN)
		// ------------------------------------------------------------

		if u.Device.StatusSlot == nil {
			continue
		}

		// ASCII already validated
		if len(u.Device.DeviceName) > MaxDeviceName {
			u.Device.DeviceName = u.Device.DeviceName[:MaxDeviceName]
		}
	}
}
