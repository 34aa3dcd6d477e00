package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/salesbot/internal/auth"
	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/hooks"
	"github.com/soyeahso/salesbot/internal/logging"
	"github.com/soyeahso/salesbot/internal/orders"
	"github.com/soyeahso/salesbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

type recordingSender struct {
	mu   sync.Mutex
	sent []domain.OutboundMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg domain.OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) bodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, m := range s.sent {
		out[i] = m.Body
	}
	return out
}

func (s *recordingSender) last(t *testing.T) domain.OutboundMessage {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent)
	return s.sent[len(s.sent)-1]
}

type fakeAuth struct {
	users map[string]domain.User
	pass  map[string]string
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(_ context.Context, username, password string) (domain.User, error) {
	f.calls++
	if f.err != nil {
		return domain.User{}, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return domain.User{}, auth.ErrInvalidCredentials
	}
	if f.pass[username] != password {
		return domain.User{}, auth.ErrInvalidPassword
	}
	return u, nil
}

type fakeOrders struct {
	rows  map[int64][]domain.Order
	err   error
	calls int
}

func (f *fakeOrders) ListRecentOrders(_ context.Context, userID int64) ([]domain.Order, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[userID], nil
}

type listFormatter struct{}

func (listFormatter) Format(list []domain.Order) string {
	nums := make([]string, len(list))
	for i, o := range list {
		nums[i] = o.OrderNumber
	}
	return "orders: " + strings.Join(nums, ",")
}

var alice = domain.User{ID: 1, Username: "alice", FirstName: "Alice", LastName: "Smith", Role: "sales_officer"}

type fixture struct {
	d      *Dispatcher
	sender *recordingSender
	auth   *fakeAuth
	orders *fakeOrders
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		sender: &recordingSender{},
		auth: &fakeAuth{
			users: map[string]domain.User{"alice": alice},
			pass:  map[string]string{"alice": "correctpass"},
		},
		orders: &fakeOrders{rows: map[int64][]domain.Order{
			1: {{ID: 10, OrderNumber: "A-2", SalesOfficerID: 1}, {ID: 9, OrderNumber: "A-1", SalesOfficerID: 1}},
		}},
	}
	f.d = New(f.sender, f.auth, f.orders, listFormatter{}, opts, testLogger())
	return f
}

func (f *fixture) say(chatID, text string) {
	f.d.HandleInbound(context.Background(), domain.InboundMessage{
		ChannelID: "telegram",
		ChatID:    chatID,
		From:      chatID,
		Body:      text,
	})
}

func (f *fixture) login(chatID string) {
	f.say(chatID, "/start")
	f.say(chatID, "alice")
	f.say(chatID, "correctpass")
}

// --- command parsing ---

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/start", "start", true},
		{"  /Orders  ", "orders", true},
		{"/orders@sales_bot", "orders", true},
		{"/logout now", "logout", true},
		{"/", "", false},
		{"/@bot", "", false},
		{"alice", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseCommand(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// --- login flow ---

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(Options{})

	f.say("42", "/start")
	f.say("42", "alice")
	f.say("42", "wrongpass")

	assert.Equal(t, []string{replyWelcome, replyAskPassword, replyInvalidCredentials}, f.sender.bodies())
	assert.Equal(t, 0, f.d.sessions.Len())

	// The dialogue is over; more text needs a fresh /start.
	f.say("42", "correctpass")
	assert.Equal(t, replyStartFirst, f.sender.last(t).Body)
	assert.Equal(t, 1, f.auth.calls)
}

func TestLogin_UnknownUserSameReply(t *testing.T) {
	f := newFixture(Options{})

	f.say("42", "/start")
	f.say("42", "mallory")
	f.say("42", "whatever")

	assert.Equal(t, replyInvalidCredentials, f.sender.last(t).Body)
}

func TestLogin_SuccessThenOrders(t *testing.T) {
	f := newFixture(Options{})
	f.login("42")

	msg := f.sender.last(t)
	assert.True(t, msg.Markdown)
	assert.Contains(t, msg.Body, "Welcome, *Alice Smith*")
	assert.Contains(t, msg.Body, `Role: sales\_officer`)
	assert.Equal(t, 1, f.d.sessions.Len())

	f.say("42", "/orders")
	msg = f.sender.last(t)
	assert.Equal(t, "orders: A-2,A-1", msg.Body)
	assert.True(t, msg.Markdown)
	assert.Equal(t, "telegram", msg.ChannelID)
	assert.Equal(t, "42", msg.To)
}

func TestLogin_BlankUsernameReprompts(t *testing.T) {
	f := newFixture(Options{})
	f.say("42", "/start")
	f.say("42", "   ")

	assert.Equal(t, replyAskUsername, f.sender.last(t).Body)

	f.say("42", "alice")
	assert.Equal(t, replyAskPassword, f.sender.last(t).Body)
}

func TestLogin_PasswordNotTrimmed(t *testing.T) {
	f := newFixture(Options{})
	f.say("42", "/start")
	f.say("42", " alice ")
	f.say("42", "correctpass ")

	assert.Equal(t, replyInvalidCredentials, f.sender.last(t).Body)
}

func TestLogin_Unavailable(t *testing.T) {
	f := newFixture(Options{MaxAttempts: 1})
	f.auth.err = fmt.Errorf("%w: connection refused", auth.ErrUnavailable)

	f.login("42")
	assert.Equal(t, replyAuthUnavailable, f.sender.last(t).Body)

	// Outages do not count toward the attempt limit.
	f.auth.err = nil
	f.login("42")
	assert.Contains(t, f.sender.last(t).Body, "Welcome, *Alice Smith*")
}

func TestLogin_TooManyAttempts(t *testing.T) {
	f := newFixture(Options{MaxAttempts: 2, AttemptWindow: time.Hour})

	for i := 0; i < 2; i++ {
		f.say("42", "/start")
		f.say("42", "alice")
		f.say("42", "nope")
	}
	f.login("42")

	assert.Equal(t, replyTooManyAttempts, f.sender.last(t).Body)
	assert.Equal(t, 2, f.auth.calls, "rate-limited attempts never reach the authenticator")
	assert.Equal(t, 0, f.d.sessions.Len())

	// Other conversations are unaffected.
	f.login("43")
	assert.Contains(t, f.sender.last(t).Body, "Welcome")
}

// --- /orders ---

func TestOrders_RequiresLogin(t *testing.T) {
	f := newFixture(Options{})
	f.say("42", "/orders")

	assert.Equal(t, replyLoginRequired, f.sender.last(t).Body)
	assert.Equal(t, 0, f.orders.calls, "no datastore query without a session")
}

func TestOrders_Empty(t *testing.T) {
	f := newFixture(Options{})
	f.orders.rows = nil
	f.login("42")
	f.say("42", "/orders")

	assert.Equal(t, replyNoOrders, f.sender.last(t).Body)
}

func TestOrders_Error(t *testing.T) {
	f := newFixture(Options{})
	f.orders.err = errors.New("timeout")
	f.login("42")
	f.say("42", "/orders")

	assert.Equal(t, replyOrdersError, f.sender.last(t).Body)
	assert.Equal(t, 1, f.d.sessions.Len(), "data errors do not end the session")
}

func TestOrders_SessionsAreIsolated(t *testing.T) {
	f := newFixture(Options{})
	f.login("42")

	f.d.HandleInbound(context.Background(), domain.InboundMessage{ChannelID: "irc", ChatID: "42", Body: "/orders"})
	assert.Equal(t, replyLoginRequired, f.sender.last(t).Body)

	f.say("43", "/orders")
	assert.Equal(t, replyLoginRequired, f.sender.last(t).Body)
}

// --- /start, /logout, other ---

func TestStart_EndsExistingSession(t *testing.T) {
	f := newFixture(Options{})
	f.login("42")
	f.say("42", "/start")

	assert.Equal(t, 0, f.d.sessions.Len())
	f.say("42", "/orders")
	assert.Equal(t, replyLoginRequired, f.sender.last(t).Body)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(Options{})
	f.login("42")

	f.say("42", "/logout")
	assert.Equal(t, replyLogout, f.sender.last(t).Body)
	assert.Equal(t, 0, f.d.sessions.Len())

	f.say("42", "/logout")
	assert.Equal(t, replyLogout, f.sender.last(t).Body)

	f.say("42", "/orders")
	assert.Equal(t, replyLoginRequired, f.sender.last(t).Body)
}

func TestLogout_AbandonsDialogue(t *testing.T) {
	f := newFixture(Options{})
	f.say("42", "/start")
	f.say("42", "alice")
	f.say("42", "/logout")
	f.say("42", "correctpass")

	assert.Equal(t, replyStartFirst, f.sender.last(t).Body)
	assert.Equal(t, 0, f.auth.calls)
}

func TestText_AlreadyLoggedIn(t *testing.T) {
	f := newFixture(Options{})
	f.login("42")
	f.say("42", "hello")

	assert.Contains(t, f.sender.last(t).Body, "already logged in as *Alice Smith*")
	assert.Equal(t, 1, f.auth.calls)
}

func TestText_NoDialogue(t *testing.T) {
	f := newFixture(Options{})
	f.say("42", "hello")
	assert.Equal(t, replyStartFirst, f.sender.last(t).Body)
}

func TestHelpAndUnknown(t *testing.T) {
	f := newFixture(Options{})
	f.say("42", "/help")
	assert.Equal(t, replyHelp, f.sender.last(t).Body)

	f.say("42", "/delete_everything")
	assert.Equal(t, replyUnknownCommand, f.sender.last(t).Body)
}

func TestHangup_EndsSessionSilently(t *testing.T) {
	f := newFixture(Options{})
	f.login("42")
	f.login("43")
	sent := len(f.sender.bodies())

	f.d.HandleInbound(context.Background(), domain.InboundMessage{ChannelID: "telegram", ChatID: "42", Hangup: true})
	assert.Len(t, f.sender.bodies(), sent, "no reply to a departed peer")
	assert.Equal(t, 1, f.d.sessions.Len())

	f.say("42", "/orders")
	assert.Equal(t, replyLoginRequired, f.sender.last(t).Body)
	f.say("43", "/orders")
	assert.Equal(t, "orders: A-2,A-1", f.sender.last(t).Body)
}

func TestHangup_AbandonsDialogue(t *testing.T) {
	f := newFixture(Options{})
	f.say("42", "/start")
	f.say("42", "alice")
	f.d.HandleInbound(context.Background(), domain.InboundMessage{ChannelID: "telegram", ChatID: "42", Hangup: true})

	assert.Equal(t, 0, f.d.dialogues.Len())
	f.say("42", "correctpass")
	assert.Equal(t, replyStartFirst, f.sender.last(t).Body)
	assert.Equal(t, 0, f.auth.calls)
}

func TestHangup_KeepsLoginFailures(t *testing.T) {
	f := newFixture(Options{MaxAttempts: 1, AttemptWindow: time.Hour})
	f.say("42", "/start")
	f.say("42", "alice")
	f.say("42", "nope")
	f.d.HandleInbound(context.Background(), domain.InboundMessage{ChannelID: "telegram", ChatID: "42", Hangup: true})

	f.login("42")
	assert.Equal(t, replyTooManyAttempts, f.sender.last(t).Body)
}

func TestSendErrorIsNotFatal(t *testing.T) {
	f := newFixture(Options{})
	f.sender.err = errors.New("blocked")
	f.login("42")
	assert.Equal(t, 1, f.d.sessions.Len())
}

// --- hooks ---

func TestHooks_LoginEvents(t *testing.T) {
	hm := hooks.NewManager(testLogger())
	events := make(chan hooks.Payload, 4)
	for _, ev := range []string{hooks.EventLoginSucceeded, hooks.EventLoginFailed, hooks.EventLogout} {
		hm.On(ev, "test", func(_ context.Context, p hooks.Payload) error {
			events <- p
			return nil
		})
	}

	f := newFixture(Options{Hooks: hm})
	f.say("42", "/start")
	f.say("42", "alice")
	f.say("42", "bad")
	f.login("42")
	f.say("42", "/logout")

	got := map[string]hooks.Payload{}
	for i := 0; i < 3; i++ {
		select {
		case p := <-events:
			got[p.Event] = p
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d hook events received", i)
		}
	}

	assert.Equal(t, "invalid_password", got[hooks.EventLoginFailed].Data["reason"])
	assert.Equal(t, "alice", got[hooks.EventLoginSucceeded].Data["username"])
	assert.Equal(t, "42", got[hooks.EventLogout].Data["chatId"])
	for _, p := range got {
		assert.NotContains(t, p.Data, "password")
	}
}

// --- queue ---

func TestRunProcessesQueueInOrder(t *testing.T) {
	f := newFixture(Options{QueueSize: 8})
	ctx, cancel := context.WithCancel(context.Background())

	go f.d.Run(ctx)
	for _, text := range []string{"/start", "alice", "correctpass", "/orders"} {
		require.True(t, f.d.Enqueue(domain.InboundMessage{ChannelID: "telegram", ChatID: "42", Body: text}))
	}

	assert.Eventually(t, func() bool { return len(f.sender.bodies()) == 4 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-f.d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
	assert.Equal(t, "orders: A-2,A-1", f.sender.last(t).Body)
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	f := newFixture(Options{QueueSize: 1})
	assert.True(t, f.d.Enqueue(domain.InboundMessage{Body: "/help"}))
	assert.False(t, f.d.Enqueue(domain.InboundMessage{Body: "/help"}))
}

// --- end to end over SQLite ---

func TestEndToEnd_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenSQLite(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)

	aliceID, err := db.CreateUser(ctx, domain.UserRecord{
		User:         domain.User{Username: "alice", FirstName: "Alice", Role: "sales_officer"},
		PasswordHash: string(hash),
		Status:       domain.UserStatusApproved,
	})
	require.NoError(t, err)
	bobID, err := db.CreateUser(ctx, domain.UserRecord{
		User:         domain.User{Username: "bob", Role: "sales_officer"},
		PasswordHash: string(hash),
		Status:       domain.UserStatusApproved,
	})
	require.NoError(t, err)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		_, err := db.InsertOrder(ctx, domain.Order{
			OrderNumber:    fmt.Sprintf("ALICE-%02d", i),
			CustomerName:   "Customer",
			TotalAmount:    1000,
			Status:         domain.OrderStatusApproved,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
			SalesOfficerID: aliceID,
		})
		require.NoError(t, err)
	}
	_, err = db.InsertOrder(ctx, domain.Order{
		OrderNumber: "BOB-01", CustomerName: "Other", Status: domain.OrderStatusPending,
		CreatedAt: base.Add(100 * time.Hour), SalesOfficerID: bobID,
	})
	require.NoError(t, err)

	formatter, err := orders.NewFormatter(config.OrdersConfig{Currency: "UZS", Locale: "en", Timezone: "UTC"})
	require.NoError(t, err)

	sender := &recordingSender{}
	d := New(sender,
		auth.New(db, testLogger()),
		orders.NewService(db, 10, testLogger()),
		formatter, Options{}, testLogger())

	for _, text := range []string{"/start", "alice", "correctpass", "/orders"} {
		d.HandleInbound(ctx, domain.InboundMessage{ChannelID: "telegram", ChatID: "42", Body: text})
	}

	body := sender.last(t).Body
	assert.True(t, strings.HasPrefix(body, "📦 *Your last 10 orders:*"), body)
	assert.Contains(t, body, `ALICE-11`)
	assert.NotContains(t, body, `ALICE-01`)
	assert.NotContains(t, body, "BOB")
	assert.Less(t, strings.Index(body, "ALICE-11"), strings.Index(body, "ALICE-10"))
}
