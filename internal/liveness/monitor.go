package liveness

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/msana/internal/billingapi"
	"github.com/matheus3301/msana/internal/metrics"
	"go.uber.org/zap"
)

// DefaultProbeInterval is used when the configured interval is not positive.
const DefaultProbeInterval = 5 * time.Second

// Prober checks reachability of the remote API.
type Prober interface {
	Health(ctx context.Context) error
}

// Mode is how the monitor decides the state.
type Mode string

const (
	ModeAuto          Mode = "auto"
	ModeForcedOnline  Mode = "forced_online"
	ModeForcedOffline Mode = "forced_offline"
)

// Monitor drives a Machine from periodic health probes, unless an operator
// has forced the state.
type Monitor struct {
	machine  *Machine
	prober   Prober
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	mode   Mode
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor in auto mode.
func NewMonitor(machine *Machine, prober Prober, interval time.Duration, logger *zap.Logger, mt *metrics.Metrics) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		machine:  machine,
		prober:   prober,
		interval: interval,
		logger:   logger,
		metrics:  mt,
		mode:     ModeAuto,
	}
}

// Online reports the current liveness signal.
func (m *Monitor) Online() bool {
	return m.machine.Online()
}

// State returns the current state.
func (m *Monitor) State() State {
	return m.machine.Current()
}

// Mode returns the current mode.
func (m *Monitor) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Force pins the state until Auto is called.
func (m *Monitor) Force(online bool) error {
	m.mu.Lock()
	if online {
		m.mode = ModeForcedOnline
	} else {
		m.mode = ModeForcedOffline
	}
	m.mu.Unlock()

	m.logger.Info("liveness forced", zap.Bool("online", online))
	if online {
		return m.set(Online)
	}
	return m.set(Offline)
}

// Auto returns to probe-driven mode and probes once.
func (m *Monitor) Auto(ctx context.Context) error {
	m.mu.Lock()
	m.mode = ModeAuto
	m.mu.Unlock()
	m.logger.Info("liveness back to auto")
	return m.Probe(ctx)
}

// Probe runs one health check and updates the state. Forced modes skip it.
// Only a network failure means offline; any HTTP answer, even an error status,
// proves the API is reachable.
func (m *Monitor) Probe(ctx context.Context) error {
	if m.Mode() != ModeAuto {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.prober.Health(ctx)
	if m.Mode() != ModeAuto {
		return nil
	}
	if billingapi.IsNetwork(err) {
		if m.machine.Current() != Offline {
			m.logger.Warn("api unreachable", zap.Error(err))
		}
		return m.set(Offline)
	}
	if err != nil {
		m.logger.Debug("health answered with an error", zap.Error(err))
	}
	return m.set(Online)
}

func (m *Monitor) set(to State) error {
	changed, err := m.machine.Set(to)
	if err != nil {
		return err
	}
	if changed {
		m.logger.Info("liveness changed", zap.String("state", string(to)))
	}
	m.metrics.SetOnline(to == Online)
	return nil
}

// Start probes once before returning, so callers never see Unknown, and then
// on every interval until Stop.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.mu.Lock()
	m.cancel, m.done = cancel, done
	m.mu.Unlock()

	if err := m.Probe(ctx); err != nil {
		m.logger.Error("liveness probe", zap.Error(err))
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := m.Probe(ctx); err != nil {
					m.logger.Error("liveness probe", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the probe loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
