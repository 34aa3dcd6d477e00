package bot

import (
	"fmt"

	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/orders"
)

const (
	replyWelcome = "👋 Welcome to the sales bot!\n\nTo see your orders, please log in.\nSend your *username*:"

	replyAskUsername = "Please send your username:"
	replyAskPassword = "🔑 Now send your *password*:"

	replyInvalidCredentials = "❌ Invalid username or password.\nSend /start to try again."
	replyAuthUnavailable    = "⚠️ Login is temporarily unavailable. Please try again later."
	replyTooManyAttempts    = "⛔ Too many failed login attempts. Please try again later."
	replyStartFirst         = "Send /start to log in."

	replyLoginRequired = "🔒 You are not logged in. Send /start to log in."
	replyNoOrders      = "📭 You have no orders yet."
	replyOrdersError   = "⚠️ Error loading orders. Please try again later."

	replyLogout = "👋 You have been logged out. Send /start to log in again."

	replyHelp = "*Commands*\n" +
		"/start - log in\n" +
		"/orders - your recent orders\n" +
		"/logout - log out\n" +
		"/help - this message"

	replyUnknownCommand = "Unknown command. Send /help for the list of commands."
)

func replyLoginSuccess(u domain.User) string {
	return fmt.Sprintf("✅ Welcome, *%s*!\nRole: %s\n\nSend /orders to see your recent orders.",
		orders.EscapeMarkdown(u.DisplayName()), orders.EscapeMarkdown(u.Role))
}

func replyAlreadyLoggedIn(u domain.User) string {
	return fmt.Sprintf("You are already logged in as *%s*.\nSend /orders to see your orders or /logout to log out.",
		orders.EscapeMarkdown(u.DisplayName()))
}
