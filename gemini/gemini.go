// Package gemini implements [campus.AnswerService] directly on the Google
// Gemini API, for running the client without the hosted answer endpoint.
//
// The persona selects the system instruction and the academic year is
// added to it as context. The hosted endpoint also grounds answers in the
// university's documents; this backend does not.
package gemini

import (
	"fmt"

	"github.com/fwojciec/campus"
)

const (
	defaultModel     = "gemini-2.0-flash"
	defaultMaxTokens = 8192
)

// prompts holds the system instruction of each persona.
var prompts = map[campus.Persona]string{
	campus.PersonaStudyBuddy: "You are a helpful student peer. " +
		"Never use Markdown tables or grids; they render badly. " +
		"If the user asks for a full timetable, give the link to the official document instead. " +
		"For a specific day use a simple list such as 'Monday: 9am - Math'. " +
		"Always put the direct link first when a document is involved.",
	campus.PersonaProfessor: "You are a strict academic professor. " +
		"Do not produce ASCII or Markdown tables. " +
		"For schedules, give the link to the official document immediately. " +
		"State specific class details in a clear sentence or a bullet list.",
	campus.PersonaBro: "You are a chill friend. " +
		"No grid tables. " +
		"If they want the timetable, say 'Here is the link' and give the link to the official document. " +
		"Only list specific classes when they ask something like 'When is Physics?'.",
	campus.PersonaELI5: "Explain simply, as to a five-year-old. " +
		"Never draw complex tables. Give the link if they need the schedule.",
}

// SystemInstruction returns the system instruction for a question asked with
// persona p by a student in year y. Unknown personas use Study Buddy.
func SystemInstruction(p campus.Persona, y campus.Year) string {
	prompt, ok := prompts[p]
	if !ok {
		prompt = prompts[campus.PersonaStudyBuddy]
	}
	if y == "" {
		return prompt
	}
	return fmt.Sprintf("%s\n\nThe student is in academic year %s. Answer for that year's courses.", prompt, y)
}
