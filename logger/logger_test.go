package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "nonsense")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOTWATCHER_ENVIRONMENT", "production")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	t.Setenv("LOTWATCHER_ENVIRONMENT", "development")
	assert.Equal(t, zerolog.DebugLevel, getLogLevel())
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	l.WithFields(Fields{"source": "iaai", "search": "trucks"}).
		WithError(errors.New("boom")).
		Error().Msg("cycle failed")

	out := buf.String()
	assert.Contains(t, out, `"source":"iaai"`)
	assert.Contains(t, out, `"search":"trucks"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, "cycle failed")
}

func TestScopedLoggers(t *testing.T) {
	var buf bytes.Buffer
	Default = New(zerolog.New(&buf))
	defer func() { Default = nil }()

	ForSearch("copart", "sedans").Info().Msg("hello")
	assert.Contains(t, buf.String(), `"search":"sedans"`)
	assert.Contains(t, buf.String(), `"source":"copart"`)

	buf.Reset()
	ForStore().Info().Msg("x")
	assert.Contains(t, buf.String(), `"component":"store"`)
}
