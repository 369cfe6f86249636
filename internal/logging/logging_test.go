package logging

import (
	"TrafficParser/internal/model"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLevel("verbose")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "traffic.log")

	log, closer, err := New(Options{Level: "warn", File: file, Console: &console})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Str("file", "a.pcap").Msg("Skipping capture file")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "Skipping capture file")
	assert.NotContains(t, console.String(), "hidden")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"file":"a.pcap"`)
	assert.Contains(t, string(data), `"level":"warn"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
