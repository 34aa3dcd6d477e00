package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/soyeahso/salesbot/internal/config"
)

// DefaultCommandTimeout bounds a hook command without an explicit timeout.
const DefaultCommandTimeout = 5 * time.Second

// CommandHandler returns a Handler that runs command through sh -c with the
// JSON-encoded payload on stdin. A non-zero exit is reported as an error
// carrying the command's trimmed stderr.
func CommandHandler(command string, timeout time.Duration) Handler {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return func(ctx context.Context, p Payload) error {
		body, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding hook payload: %w", err)
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdin = bytes.NewReader(body)
		cmd.Stderr = &stderr
		cmd.WaitDelay = time.Second
		cmd.Env = append(cmd.Environ(), "SALESBOT_HOOK_EVENT="+p.Event)

		if err := cmd.Run(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("hook command %q: %w: %s", command, err, msg)
			}
			return fmt.Errorf("hook command %q: %w", command, err)
		}
		return nil
	}
}

// RegisterCommands registers a CommandHandler for every configured hook
// entry and returns how many were registered.
func (m *Manager) RegisterCommands(cfg config.HooksConfig) int {
	n := 0
	for event, entries := range cfg {
		for i, e := range entries {
			timeout := time.Duration(e.Timeout) * time.Millisecond
			m.On(event, fmt.Sprintf("config:%s[%d]", event, i), CommandHandler(e.Command, timeout))
			n++
		}
	}
	return n
}
