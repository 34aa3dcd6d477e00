// Package liveness periodically asks every transport who it is and logs the answer.
package liveness

import (
	"context"
	"time"

	"github.com/soyeahso/salesbot/internal/channel"
	"github.com/soyeahso/salesbot/internal/hooks"
	"github.com/soyeahso/salesbot/internal/logging"
)

// DefaultInterval is the probe period when none is configured.
const DefaultInterval = 5 * time.Minute

// Prober runs one identity probe across all transports.
type Prober interface {
	Probe(ctx context.Context) []channel.ProbeResult
}

// Monitor logs transport liveness on a fixed interval. Failures are
// reported and never retried or acted on.
type Monitor struct {
	probes   Prober
	interval time.Duration
	hooks    *hooks.Manager
	log      *logging.Logger
}

// New creates a Monitor. hm may be nil.
func New(probes Prober, interval time.Duration, hm *hooks.Manager, log *logging.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		probes:   probes,
		interval: interval,
		hooks:    hm,
		log:      log.Sub("liveness"),
	}
}

// Run probes every interval until ctx is cancelled. The first probe runs
// one interval after start.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info().Dur("interval", m.interval).Msg("liveness monitor started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one probe round and returns the number of failed probes.
func (m *Monitor) Check(ctx context.Context) int {
	failed := 0
	for _, r := range m.probes.Probe(ctx) {
		if r.Err != nil {
			failed++
			m.log.Error().Err(r.Err).
				Str("channel", r.ChannelID).
				Dur("latency", r.Latency).
				Msg("liveness probe failed")
			m.hooks.EmitAsync(context.WithoutCancel(ctx), hooks.EventProbeFailed, map[string]any{
				"channel": r.ChannelID,
				"error":   r.Err.Error(),
			})
			continue
		}
		m.log.Info().
			Str("channel", r.ChannelID).
			Str("bot", r.Identity.Username).
			Str("botId", r.Identity.ID).
			Time("at", time.Now()).
			Dur("latency", r.Latency).
			Msg("bot is alive")
	}
	return failed
}
