package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultHeartbeatInterval is the liveness sweep period.
const DefaultHeartbeatInterval = 30 * time.Second

// Monitor periodically probes every registered connection. A connection
// that misses two consecutive probes is closed and evicted; one missed
// probe only clears its alive flag, so a merely slow peer survives a tick.
type Monitor struct {
	registry *Registry
	interval time.Duration
	logger   *zap.Logger
}

// NewMonitor creates a heartbeat monitor. interval <= 0 selects the default.
func NewMonitor(registry *Registry, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{registry: registry, interval: interval, logger: logger}
}

// Run sweeps the registry until ctx is cancelled. It is a background
// process with lifecycle equal to the server process.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep runs one probe round over a registry snapshot.
func (m *Monitor) Sweep() {
	for _, ci := range m.registry.Snapshot() {
		if !m.registry.IsAliveAndClear(ci.ID) {
			// no pong since the previous probe: second strike
			m.logger.Debug("evicting dead connection", zap.String("conn_id", ci.ID))
			_ = ci.Transport.Close()
			m.registry.Unregister(ci.ID)
			continue
		}
		if err := ci.Transport.Ping(); err != nil {
			// a failed ping counts the same as a missed pong
			m.registry.MarkPendingPing(ci.ID)
			m.logger.Debug("ping failed", zap.String("conn_id", ci.ID), zap.Error(err))
		}
	}
}
