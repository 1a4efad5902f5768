package campus

import (
	"fmt"
	"slices"
)

// Persona selects the response style of the Answer Service. It is passed
// through, never interpreted locally.
type Persona string

const (
	PersonaStudyBuddy Persona = "Study Buddy"
	PersonaProfessor  Persona = "The Professor"
	PersonaBro        Persona = "The Bro"
	PersonaELI5       Persona = "ELI5"
)

// Personas returns the fixed persona set in display order.
func Personas() []Persona {
	return []Persona{PersonaStudyBuddy, PersonaProfessor, PersonaBro, PersonaELI5}
}

// Year is the academic-year context of a question.
type Year string

const (
	Year1 Year = "1"
	Year2 Year = "2"
	Year3 Year = "3"
	Year4 Year = "4"
)

// Years returns the fixed year set in display order.
func Years() []Year {
	return []Year{Year1, Year2, Year3, Year4}
}

// ParsePersona returns the persona in set named s.
func ParsePersona(set []Persona, s string) (Persona, error) {
	p := Persona(s)
	if !slices.Contains(set, p) {
		return "", fmt.Errorf("unknown persona %q: %w", s, ErrValidation)
	}
	return p, nil
}

// ParseYear returns the year in set named s.
func ParseYear(set []Year, s string) (Year, error) {
	y := Year(s)
	if !slices.Contains(set, y) {
		return "", fmt.Errorf("unknown year %q: %w", s, ErrValidation)
	}
	return y, nil
}

// next returns the element after cur in set, wrapping around. An element
// not in set yields the first one.
func next[T comparable](set []T, cur T) T {
	i := slices.Index(set, cur)
	return set[(i+1)%len(set)]
}
