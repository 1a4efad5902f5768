package campus

import "fmt"

// Config is the immutable configuration of a Controller.
type Config struct {
	Personas       []Persona
	Years          []Year
	DefaultPersona Persona
	DefaultYear    Year

	// TitleLength is how many characters of the first message become the
	// conversation title. TitleSuffix is appended to every title.
	TitleLength int
	TitleSuffix string

	// YearKey is the key-value store key holding the selected year.
	YearKey string

	// DeletePrompt is shown by the Confirmer before deleting a conversation.
	DeletePrompt string
}

// YearKey is the default key under which the selected year is persisted.
const YearKey = "academic_year"

// DefaultConfig returns the configuration used by the campus client.
func DefaultConfig() Config {
	return Config{
		Personas:       Personas(),
		Years:          Years(),
		DefaultPersona: PersonaStudyBuddy,
		DefaultYear:    Year1,
		TitleLength:    30,
		TitleSuffix:    "...",
		YearKey:        YearKey,
		DeletePrompt:   "Delete this chat?",
	}
}

// Validate checks that defaults belong to their sets.
func (c Config) Validate() error {
	if len(c.Personas) == 0 || len(c.Years) == 0 {
		return fmt.Errorf("personas and years must not be empty: %w", ErrValidation)
	}
	if _, err := ParsePersona(c.Personas, string(c.DefaultPersona)); err != nil {
		return fmt.Errorf("default persona: %w", err)
	}
	if _, err := ParseYear(c.Years, string(c.DefaultYear)); err != nil {
		return fmt.Errorf("default year: %w", err)
	}
	if c.TitleLength <= 0 {
		return fmt.Errorf("title length must be positive, got %d: %w", c.TitleLength, ErrValidation)
	}
	if c.YearKey == "" {
		return fmt.Errorf("year key must not be empty: %w", ErrValidation)
	}
	return nil
}

// DeriveTitle returns the title of a conversation whose first message is
// text.
func (c Config) DeriveTitle(text string) string {
	return DeriveTitle(text, c.TitleLength, c.TitleSuffix)
}
