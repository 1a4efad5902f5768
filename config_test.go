package campus_test

import (
	"testing"

	"github.com/fwojciec/campus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	t.Parallel()
	cfg := campus.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, campus.PersonaStudyBuddy, cfg.DefaultPersona)
	assert.Equal(t, campus.Year1, cfg.DefaultYear)
	assert.Equal(t, []campus.Persona{"Study Buddy", "The Professor", "The Bro", "ELI5"}, cfg.Personas)
	assert.Equal(t, []campus.Year{"1", "2", "3", "4"}, cfg.Years)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*campus.Config)
	}{
		{"empty personas", func(c *campus.Config) { c.Personas = nil }},
		{"default persona outside set", func(c *campus.Config) { c.DefaultPersona = "Pirate" }},
		{"default year outside set", func(c *campus.Config) { c.DefaultYear = "5" }},
		{"zero title length", func(c *campus.Config) { c.TitleLength = 0 }},
		{"empty year key", func(c *campus.Config) { c.YearKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := campus.DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), campus.ErrValidation)
		})
	}
}

func TestParsePersonaAndYear(t *testing.T) {
	t.Parallel()
	p, err := campus.ParsePersona(campus.Personas(), "ELI5")
	require.NoError(t, err)
	assert.Equal(t, campus.PersonaELI5, p)

	_, err = campus.ParsePersona(campus.Personas(), "eli5")
	assert.ErrorIs(t, err, campus.ErrValidation)

	y, err := campus.ParseYear(campus.Years(), "3")
	require.NoError(t, err)
	assert.Equal(t, campus.Year3, y)

	_, err = campus.ParseYear(campus.Years(), "0")
	assert.ErrorIs(t, err, campus.ErrValidation)
}
