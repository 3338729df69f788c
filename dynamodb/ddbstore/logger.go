package ddbstore

import (
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// NewLogger adapts a zerolog logger to BadgerDB's logger interface.
func NewLogger(l zerolog.Logger) badger.Logger {
	return badgerLogger{l.With().Str("component", "badger").Logger()}
}

type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{})   { b.l.Error().Msgf(trim(f), v...) }
func (b badgerLogger) Warningf(f string, v ...interface{}) { b.l.Warn().Msgf(trim(f), v...) }
func (b badgerLogger) Infof(f string, v ...interface{})    { b.l.Info().Msgf(trim(f), v...) }
func (b badgerLogger) Debugf(f string, v ...interface{})   { b.l.Debug().Msgf(trim(f), v...) }

// Badger terminates its format strings with a newline.
func trim(f string) string {
	return strings.TrimSuffix(f, "\n")
}
