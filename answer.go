package campus

import "context"

// Question is what the Answer Service receives for one user message.
type Question struct {
	Message string
	Year    Year
	Persona Persona
	Token   string
}

// AnswerService generates an answer for a question. One call is one
// request/response round trip.
type AnswerService interface {
	Answer(ctx context.Context, q Question) (string, error)
}
