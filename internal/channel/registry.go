// Package channel provides channel management for chat transports.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/logging"
)

// ErrUnknownChannel is returned when a message targets an unregistered channel.
var ErrUnknownChannel = errors.New("unknown channel")

// Registry manages a set of chat channels.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]domain.Channel
	log      *logging.Logger
}

// NewRegistry creates a channel registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		channels: make(map[string]domain.Channel),
		log:      log.Sub("channels"),
	}
}

// Register adds a channel to the registry.
func (r *Registry) Register(ch domain.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID()] = ch
	r.log.Info().Str("channel", ch.ID()).Msg("channel registered")
}

// Get returns a channel by ID.
func (r *Registry) Get(id string) (domain.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// List returns all channel IDs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OnMessage installs handler on every registered channel.
func (r *Registry) OnMessage(handler func(domain.InboundMessage)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.channels {
		ch.OnMessage(handler)
	}
}

// Send routes msg to the channel named by msg.ChannelID.
func (r *Registry) Send(ctx context.Context, msg domain.OutboundMessage) error {
	ch, ok := r.Get(msg.ChannelID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, msg.ChannelID)
	}
	return ch.Send(ctx, msg)
}

// StartAll starts all registered channels in background goroutines.
// Channel Start methods block until the channel stops, so each is
// launched concurrently.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, ch := range r.channels {
		r.log.Info().Str("channel", id).Msg("starting channel")
		go func(id string, ch domain.Channel) {
			if err := ch.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Error().Err(err).Str("channel", id).Msg("channel exited with error")
			}
		}(id, ch)
	}
	return nil
}

// StopAll stops all registered channels.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, ch := range r.channels {
		r.log.Info().Str("channel", id).Msg("stopping channel")
		if err := ch.Stop(ctx); err != nil {
			r.log.Error().Err(err).Str("channel", id).Msg("failed to stop channel")
		}
	}
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// ProbeResult is the outcome of one channel's identity probe.
type ProbeResult struct {
	ChannelID string
	Identity  domain.Identity
	Err       error
	Latency   time.Duration
}

// Probe asks every channel that implements domain.Prober who it is.
// Results are ordered by channel ID; channels without a probe are skipped.
func (r *Registry) Probe(ctx context.Context) []ProbeResult {
	var results []ProbeResult
	for _, id := range r.List() {
		ch, ok := r.Get(id)
		if !ok {
			continue
		}
		p, ok := ch.(domain.Prober)
		if !ok {
			continue
		}
		start := time.Now()
		ident, err := p.Probe(ctx)
		results = append(results, ProbeResult{
			ChannelID: id,
			Identity:  ident,
			Err:       err,
			Latency:   time.Since(start),
		})
	}
	return results
}
