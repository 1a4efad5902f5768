package campus

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values.
type Theme struct {
	UserMsg   int // User message accent
	Assistant int // Assistant message accent
	Error     int // Error messages
	Success   int // Persona and year badges
	Muted     int // Status bar, placeholders, timestamps
	CodeBg    int // Code block background
	Accent    int // Headings, selected conversation
	Link      int // URLs in message text
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg:   4,
		Assistant: 6,
		Error:     1,
		Success:   2,
		Muted:     8,
		CodeBg:    0,
		Accent:    5,
		Link:      4,
	}
}
