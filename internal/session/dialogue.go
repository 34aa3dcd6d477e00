package session

import (
	"strings"

	"github.com/soyeahso/salesbot/internal/domain"
)

// State is the login dialogue step a conversation is on.
// It is either AwaitingUsername or AwaitingPassword.
type State interface {
	isState()
}

// AwaitingUsername is entered by /start.
type AwaitingUsername struct{}

// AwaitingPassword holds the username submitted in the previous step.
type AwaitingPassword struct {
	Username string
}

func (AwaitingUsername) isState() {}
func (AwaitingPassword) isState() {}

// Step is the outcome of feeding text into the dialogue.
type Step interface {
	isStep()
}

// StepNoDialogue means no login is in progress for the conversation.
type StepNoDialogue struct{}

// StepAskUsername means the submitted username was blank; still awaiting one.
type StepAskUsername struct{}

// StepAskPassword means the username was accepted and a password is due.
type StepAskPassword struct {
	Username string
}

// StepAuthenticate carries complete credentials. The dialogue has ended.
type StepAuthenticate struct {
	Username string
	Password string
}

func (StepNoDialogue) isStep()   {}
func (StepAskUsername) isStep()  {}
func (StepAskPassword) isStep()  {}
func (StepAuthenticate) isStep() {}

// Dialogues tracks the login dialogue of every conversation.
type Dialogues struct {
	states map[domain.ConversationKey]State
}

// NewDialogues creates an empty dialogue tracker.
func NewDialogues() *Dialogues {
	return &Dialogues{states: make(map[domain.ConversationKey]State)}
}

// Begin starts (or restarts) a login on key.
func (d *Dialogues) Begin(key domain.ConversationKey) {
	d.states[key] = AwaitingUsername{}
}

// Advance feeds one text message into the dialogue on key.
func (d *Dialogues) Advance(key domain.ConversationKey, text string) Step {
	state, ok := d.states[key]
	if !ok {
		return StepNoDialogue{}
	}

	switch s := state.(type) {
	case AwaitingUsername:
		username := strings.TrimSpace(text)
		if username == "" {
			return StepAskUsername{}
		}
		d.states[key] = AwaitingPassword{Username: username}
		return StepAskPassword{Username: username}
	case AwaitingPassword:
		delete(d.states, key)
		return StepAuthenticate{Username: s.Username, Password: text}
	default:
		delete(d.states, key)
		return StepNoDialogue{}
	}
}

// State returns the current step on key, if a login is in progress.
func (d *Dialogues) State(key domain.ConversationKey) (State, bool) {
	s, ok := d.states[key]
	return s, ok
}

// Clear abandons any login in progress on key.
func (d *Dialogues) Clear(key domain.ConversationKey) {
	delete(d.states, key)
}

// Len returns the number of logins in progress.
func (d *Dialogues) Len() int {
	return len(d.states)
}
