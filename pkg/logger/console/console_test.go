package console

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLoggerLevels(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewConsoleLogger(ConsoleLoggerParams{Writer: buf})

	l.Debug("hidden")
	l.Info("[Pipeline] Run finished", "run_id", "r1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[Pipeline] Run finished")
	assert.Contains(t, buf.String(), "run_id=r1")

	buf.Reset()
	l = NewConsoleLogger(ConsoleLoggerParams{Writer: buf, Debug: true})
	l.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestConsoleLoggerJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewConsoleLogger(ConsoleLoggerParams{Writer: buf, Format: "json", Prefix: "lexgraph"})
	l.Warn("low completeness", "score", 0.2)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "low completeness", line["msg"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, 0.2, line["score"])
}
