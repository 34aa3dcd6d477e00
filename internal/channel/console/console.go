// Package console implements a local WebSocket transport for development.
// Every connection is one conversation keyed by a generated connection ID.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/logging"
)

// ChannelID is the channel identifier used in conversation keys.
const ChannelID = "console"

// DefaultListen is the loopback address used when none is configured.
const DefaultListen = "127.0.0.1:18790"

const maxFrameSize = 64 * 1024

var errNotListening = errors.New("console: not listening")

// InFrame is what a console client sends.
type InFrame struct {
	Text string `json:"text"`
}

// OutFrame is what the bot sends back.
type OutFrame struct {
	Text     string `json:"text"`
	Markdown bool   `json:"markdown,omitempty"`
}

type conn struct {
	id     string
	socket *websocket.Conn
	mu     sync.Mutex
}

func (c *conn) write(f OutFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.socket.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.socket.WriteJSON(f)
}

// Channel implements domain.Channel over WebSocket.
type Channel struct {
	cfg      config.ConsoleConfig
	log      *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	conns   map[string]*conn
	handler func(msg domain.InboundMessage)
	server  *http.Server
	addr    string
}

// New creates a console channel.
func New(cfg config.ConsoleConfig, log *logging.Logger) *Channel {
	return &Channel{
		cfg:   cfg,
		log:   log.Sub("console"),
		conns: make(map[string]*conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOrigin,
		},
	}
}

// sameOrigin accepts non-browser clients and pages served from the same host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func (c *Channel) ID() string { return ChannelID }

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (c *Channel) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", c.handleWebSocket)
	return mux
}

// Start listens on the configured address until ctx is cancelled or Stop is called.
func (c *Channel) Start(ctx context.Context) error {
	addr := c.cfg.Listen
	if addr == "" {
		addr = DefaultListen
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("console listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:     c.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	c.mu.Lock()
	c.server = srv
	c.addr = ln.Addr().String()
	c.mu.Unlock()

	c.log.Info().Str("addr", ln.Addr().String()).Msg("console listening")

	go func() {
		<-ctx.Done()
		c.shutdown()
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every connection and the listener.
func (c *Channel) Stop(_ context.Context) error {
	c.shutdown()
	return nil
}

func (c *Channel) shutdown() {
	c.mu.Lock()
	srv := c.server
	c.server = nil
	c.addr = ""
	conns := c.conns
	c.conns = make(map[string]*conn)
	c.mu.Unlock()

	for _, cn := range conns {
		cn.socket.Close()
	}
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		c.log.Warn().Err(err).Msg("console shutdown")
	}
}

// Addr returns the bound listen address, or "" when not listening.
func (c *Channel) Addr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.addr
}

// Probe reports the listen address while the listener is up.
func (c *Channel) Probe(_ context.Context) (domain.Identity, error) {
	addr := c.Addr()
	if addr == "" {
		return domain.Identity{}, errNotListening
	}
	return domain.Identity{ID: addr, Username: ChannelID}, nil
}

// Send writes a frame to the connection named by msg.To.
func (c *Channel) Send(_ context.Context, msg domain.OutboundMessage) error {
	c.mu.RLock()
	cn, ok := c.conns[msg.To]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("console: no connection %q", msg.To)
	}
	return cn.write(OutFrame{Text: msg.Body, Markdown: msg.Markdown})
}

// Conns returns the number of open connections.
func (c *Channel) Conns() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}

func (c *Channel) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	socket, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	socket.SetReadLimit(maxFrameSize)

	cn := &conn{id: uuid.New().String(), socket: socket}
	c.mu.Lock()
	c.conns[cn.id] = cn
	c.mu.Unlock()
	c.log.Info().Str("connId", cn.id).Str("remote", r.RemoteAddr).Msg("console client connected")

	defer func() {
		c.mu.Lock()
		delete(c.conns, cn.id)
		c.mu.Unlock()
		socket.Close()
		c.log.Info().Str("connId", cn.id).Msg("console client disconnected")
		c.deliver(domain.InboundMessage{
			ID:        uuid.New().String(),
			ChannelID: ChannelID,
			From:      cn.id,
			ChatID:    cn.id,
			Timestamp: time.Now(),
			Hangup:    true,
		})
	}()

	c.readLoop(cn)
}

func (c *Channel) deliver(msg domain.InboundMessage) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler != nil {
		handler(msg)
	}
}

func (c *Channel) readLoop(cn *conn) {
	for {
		_, data, err := cn.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Err(err).Str("connId", cn.id).Msg("console read error")
			}
			return
		}

		var f InFrame
		if err := json.Unmarshal(data, &f); err != nil || f.Text == "" {
			c.log.Debug().Str("connId", cn.id).Msg("ignoring malformed console frame")
			continue
		}

		c.deliver(domain.InboundMessage{
			ID:        uuid.New().String(),
			ChannelID: ChannelID,
			From:      cn.id,
			FromName:  "console",
			ChatID:    cn.id,
			Body:      f.Text,
			Timestamp: time.Now(),
		})
	}
}
