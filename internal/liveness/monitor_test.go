package liveness

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/salesbot/internal/channel"
	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/hooks"
	"github.com/soyeahso/salesbot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	calls   atomic.Int32
	results []channel.ProbeResult
}

func (f *fakeProber) Probe(_ context.Context) []channel.ProbeResult {
	f.calls.Add(1)
	return f.results
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCheck_LogsSuccessAndFailure(t *testing.T) {
	var out syncBuffer
	log := logging.New(&out, "info")

	hm := hooks.NewManager(log)
	failed := make(chan hooks.Payload, 1)
	hm.On(hooks.EventProbeFailed, "test", func(_ context.Context, p hooks.Payload) error {
		failed <- p
		return nil
	})

	probes := &fakeProber{results: []channel.ProbeResult{
		{ChannelID: "telegram", Identity: domain.Identity{ID: "777", Username: "sales_bot"}},
		{ChannelID: "irc", Err: errors.New("irc: not connected")},
	}}
	m := New(probes, time.Minute, hm, log)

	assert.Equal(t, 1, m.Check(context.Background()))

	select {
	case p := <-failed:
		assert.Equal(t, "irc", p.Data["channel"])
		assert.Equal(t, "irc: not connected", p.Data["error"])
	case <-time.After(2 * time.Second):
		t.Fatal("probe_failed hook not fired")
	}

	logs := out.String()
	assert.Contains(t, logs, `"bot":"sales_bot"`)
	assert.Contains(t, logs, "bot is alive")
	assert.Contains(t, logs, "liveness probe failed")
}

func TestCheck_NilHooks(t *testing.T) {
	probes := &fakeProber{results: []channel.ProbeResult{{ChannelID: "irc", Err: errors.New("down")}}}
	m := New(probes, time.Minute, nil, logging.New(nil, "silent"))
	assert.Equal(t, 1, m.Check(context.Background()))
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	probes := &fakeProber{}
	m := New(probes, 10*time.Millisecond, nil, logging.New(nil, "silent"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return probes.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	m := New(&fakeProber{}, 0, nil, logging.New(nil, "silent"))
	require.Equal(t, DefaultInterval, m.interval)
}

func TestCheck_AgainstRegistry(t *testing.T) {
	reg := channel.NewRegistry(logging.New(nil, "silent"))
	m := New(reg, time.Minute, nil, logging.New(nil, "silent"))
	assert.Equal(t, 0, m.Check(context.Background()))
}
