package bot

import "strings"

// Command names understood by the dispatcher.
const (
	CmdStart  = "start"
	CmdOrders = "orders"
	CmdLogout = "logout"
	CmdHelp   = "help"
)

// parseCommand extracts the command word from text such as "/Orders@sales_bot now".
// The second result is false when text is not a command.
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(word, '@'); at >= 0 {
		word = word[:at]
	}
	if word == "" {
		return "", false
	}
	return strings.ToLower(word), true
}
