// Package notify surfaces transient messages to the user.
package notify

import (
	"github.com/rs/zerolog"
)

// Sink shows a message to the user. Show never fails from the caller's
// point of view.
type Sink interface {
	Show(message string)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(message string)

func (f SinkFunc) Show(message string) {
	f(message)
}

// Multi fans a message out to several sinks in order
type Multi []Sink

func (m Multi) Show(message string) {
	for _, s := range m {
		if s != nil {
			s.Show(message)
		}
	}
}

// LogSink writes notifications to the application log
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Show(message string) {
	l.logger.Info().Str("message", message).Msg("Notification")
}
