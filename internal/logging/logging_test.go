package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json")
	log.Debug().Str("prefix", "Opening/").Msg("objects selected")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "Opening/", line["prefix"])
	assert.Contains(t, line, "time")
}

func TestNewLevelFallback(t *testing.T) {
	for _, level := range []string{"", "loud"} {
		log := New(&bytes.Buffer{}, level, "json")
		assert.Equal(t, zerolog.InfoLevel, log.GetLevel(), level)
	}
	assert.Equal(t, zerolog.WarnLevel, New(&bytes.Buffer{}, "WARN", "console").GetLevel())
}
