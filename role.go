package campus

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two roles a message may carry.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}
