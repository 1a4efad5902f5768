// Package bubbletea provides a Bubble Tea TUI for the campus assistant.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/campus"
)

// Session is the controller surface the TUI drives. *campus.Controller
// implements it.
type Session interface {
	Views() <-chan campus.View
	View() campus.View
	SubmitCredentials(ctx context.Context, cr campus.Credentials) error
	SignOut(ctx context.Context) error
	SetInput(text string)
	Open(id string)
	NewChat()
	CyclePersona() campus.Persona
	CycleYear() (campus.Year, error)
	BeginSend() (func(context.Context) error, error)
	DeleteConversation(ctx context.Context, id string, confirm campus.Confirmer) (bool, error)
}

var _ Session = (*campus.Controller)(nil)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown: when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// ViewMsg carries a controller view to the model.
type ViewMsg struct {
	View campus.View
}

// AuthDoneMsg signals that a credential submission has completed.
type AuthDoneMsg struct {
	Err error
}

// SendDoneMsg signals that a send has been delivered. Text is the question
// captured when the send began.
type SendDoneMsg struct {
	Text string
	Err  error
}

// DeleteDoneMsg signals that a delete request has completed.
type DeleteDoneMsg struct {
	Deleted bool
	Err     error
}

// ConfirmMsg asks the user a yes/no question on behalf of a blocked
// Confirmer. The answer must be sent on Answer exactly once.
type ConfirmMsg struct {
	Prompt string
	Answer chan<- bool
}

// SignOutDoneMsg signals that a sign out has completed.
type SignOutDoneMsg struct {
	Err error
}
