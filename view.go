package campus

// Phase is the top-level state of a session.
type Phase int

const (
	PhaseLoading Phase = iota // Waiting for the provider's first notification.
	PhaseAuth                 // No identity attached.
	PhaseMain                 // Identity attached.
)

func (p Phase) String() string {
	switch p {
	case PhaseAuth:
		return "auth"
	case PhaseMain:
		return "main"
	default:
		return "loading"
	}
}

// SendState is the in-flight state of the send operation.
type SendState int

const (
	SendIdle SendState = iota
	SendSending
)

// View is a read-only copy of the controller state for rendering.
// Current is empty in the new-chat state.
type View struct {
	Phase         Phase
	Identity      *Identity
	Persona       Persona
	Year          Year
	Current       string
	Input         string
	Send          SendState
	AuthError     string
	SendError     string
	Conversations []Conversation
	Messages      []Message
}

// Sending reports whether a send is in flight.
func (v View) Sending() bool { return v.Send == SendSending }

// Conversation returns the conversation with the given id from the mirrored
// list.
func (v View) Conversation(id string) (Conversation, bool) {
	for _, c := range v.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return Conversation{}, false
}
