package bubbletea_test

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/campus"
	bt "github.com/fwojciec/campus/bubbletea"
	"github.com/stretchr/testify/require"
)

var student = campus.Identity{UID: "uid-1", Email: "student@uni.edu"}

// fakeSession is a bt.Session that records calls. Set the function fields
// for the blocking operations you need.
type fakeSession struct {
	SubmitFn func(ctx context.Context, cr campus.Credentials) error
	SendFn   func(ctx context.Context, text string) error
	DeleteFn func(ctx context.Context, id string, confirm campus.Confirmer) (bool, error)

	BeginErr error
	YearErr  error

	mu    sync.Mutex
	view  campus.View
	views chan campus.View
	input string
	calls []string
}

func newFakeSession(v campus.View) *fakeSession {
	return &fakeSession{view: v, views: make(chan campus.View, 1)}
}

func (s *fakeSession) Views() <-chan campus.View { return s.views }

func (s *fakeSession) View() campus.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *fakeSession) SubmitCredentials(ctx context.Context, cr campus.Credentials) error {
	s.record("submit:" + cr.Mode.String() + ":" + cr.Email)
	if s.SubmitFn == nil {
		return nil
	}
	return s.SubmitFn(ctx, cr)
}

func (s *fakeSession) SignOut(context.Context) error {
	s.record("sign-out")
	return nil
}

func (s *fakeSession) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

func (s *fakeSession) Open(id string) { s.record("open:" + id) }

func (s *fakeSession) NewChat() { s.record("new-chat") }

func (s *fakeSession) CyclePersona() campus.Persona {
	s.record("cycle-persona")
	return campus.PersonaProfessor
}

func (s *fakeSession) CycleYear() (campus.Year, error) {
	s.record("cycle-year")
	return campus.Year2, s.YearErr
}

// BeginSend captures and clears the input like the controller does. The
// returned delivery records the captured text.
func (s *fakeSession) BeginSend() (func(context.Context) error, error) {
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	s.mu.Lock()
	text := s.input
	s.input = ""
	s.mu.Unlock()
	return func(ctx context.Context) error {
		s.record("send:" + text)
		if s.SendFn == nil {
			return nil
		}
		return s.SendFn(ctx, text)
	}, nil
}

func (s *fakeSession) DeleteConversation(ctx context.Context, id string, confirm campus.Confirmer) (bool, error) {
	s.record("delete:" + id)
	if s.DeleteFn == nil {
		return false, nil
	}
	return s.DeleteFn(ctx, id, confirm)
}

func (s *fakeSession) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *fakeSession) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeSession) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// mainView returns a signed-in view with the given conversations.
func mainView(convs ...campus.Conversation) campus.View {
	id := student
	return campus.View{
		Phase:         campus.PhaseMain,
		Identity:      &id,
		Persona:       campus.PersonaStudyBuddy,
		Year:          campus.Year1,
		Conversations: convs,
	}
}

// initModel creates a model over v and sends a WindowSizeMsg to initialize
// the viewport.
func initModel(t *testing.T, v campus.View) (bt.Model, *fakeSession) {
	t.Helper()
	return initModelWithSize(t, v, 100, 24)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, v campus.View, width, height int) (bt.Model, *fakeSession) {
	t.Helper()
	s := newFakeSession(v)
	m := bt.New(context.Background(), s, campus.DefaultTheme())
	m = updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
	return m, s
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// updateModelCmd sends a message and returns the updated Model and command.
func updateModelCmd(t *testing.T, m bt.Model, msg tea.Msg) (bt.Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model, cmd
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }
