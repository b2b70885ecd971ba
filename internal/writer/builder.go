// internal/writer/builder.go
package writer

import (
	"errors"
	"time"

	cfg "github.com/tamzrod/unio-bridge/internal/config"
	wmodbus "github.com/tamzrod/unio-bridge/internal/writer/modbus"
)

// BuildPlan converts one unit config into a Writer Plan.
// Assumes config has already passed conflict validation.
func BuildPlan(u cfg.UnitConfig) (Plan, error) {
	if u.ID == "" {
		return Plan{}, errors.New("writer: unit.id required")
	}

	plan := Plan{UnitID: u.ID}

	for _, t := range u.Targets {
		plan.Targets = append(plan.Targets, TargetEndpoint{
			TargetID: t.ID,
			Endpoint: t.Endpoint,
			UnitID:   t.UnitID,
			Offset:   t.Offset,
			Timeout:  time.Duration(t.TimeoutMs) * time.Millisecond,
		})

		if u.Device.StatusSlot == nil || t.StatusUnitID == nil {
			continue
		}
		plan.Status = append(plan.Status, StatusPlan{
			Endpoint:   t.Endpoint,
			UnitID:     *t.StatusUnitID,
			BaseSlot:   *u.Device.StatusSlot,
			DeviceName: u.Device.DeviceName,
		})
	}

	return plan, nil
}

// dialFunc opens one endpoint client.
type dialFunc func(endpoint string, timeout time.Duration) (endpointClient, func() error, error)

func dialModbus(endpoint string, timeout time.Duration) (endpointClient, func() error, error) {
	c, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: endpoint,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// BuildEndpointClients creates one TCP client per unique endpoint.
func BuildEndpointClients(plan Plan) (map[string]endpointClient, func() error, error) {
	return buildClients(plan, dialModbus)
}

func buildClients(plan Plan, dial dialFunc) (map[string]endpointClient, func() error, error) {
	// longest timeout wins when targets share an endpoint
	timeouts := map[string]time.Duration{}
	var order []string
	for _, t := range plan.Targets {
		prev, seen := timeouts[t.Endpoint]
		if !seen {
			order = append(order, t.Endpoint)
		}
		if t.Timeout > prev {
			timeouts[t.Endpoint] = t.Timeout
		} else if !seen {
			timeouts[t.Endpoint] = prev
		}
	}

	clients := make(map[string]endpointClient)
	var closers []func() error

	for _, endpoint := range order {
		c, closeFn, err := dial(endpoint, timeouts[endpoint])
		if err != nil {
			for _, fn := range closers {
				_ = fn()
			}
			return nil, nil, err
		}
		clients[endpoint] = c
		closers = append(closers, closeFn)
	}

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	return clients, closeAll, nil
}
