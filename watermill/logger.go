package watermill

import (
	wm "github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

var _ wm.LoggerAdapter = Logger{}

// Logger adapts a zerolog.Logger to watermill.LoggerAdapter.
type Logger struct {
	l zerolog.Logger
}

// NewLogger returns a watermill logger writing to l.
func NewLogger(l zerolog.Logger) Logger {
	return Logger{l: l}
}

func (a Logger) Error(msg string, err error, fields wm.LogFields) {
	a.l.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}

func (a Logger) Info(msg string, fields wm.LogFields) {
	a.l.Info().Fields(map[string]any(fields)).Msg(msg)
}

func (a Logger) Debug(msg string, fields wm.LogFields) {
	a.l.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (a Logger) Trace(msg string, fields wm.LogFields) {
	a.l.Trace().Fields(map[string]any(fields)).Msg(msg)
}

func (a Logger) With(fields wm.LogFields) wm.LoggerAdapter {
	return Logger{l: a.l.With().Fields(map[string]any(fields)).Logger()}
}
