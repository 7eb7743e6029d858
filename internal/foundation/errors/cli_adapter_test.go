package errors

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("bad time of day").Build(), expected: 2},
		{name: "config", err: ConfigError("missing latitude").Build(), expected: 7},
		{name: "location", err: LocationError("no fix").Build(), expected: 8},
		{name: "astronomy", err: AstronomyError("polar night").Build(), expected: 9},
		{name: "apply", err: ApplyError("refresh failed").Build(), expected: 11},
		{name: "internal", err: InternalError("boom").Build(), expected: 10},
		{name: "wrapped classified", err: fmt.Errorf("run: %w", StateError("corrupt").Build()), expected: 11},
		{name: "unclassified", err: fmt.Errorf("plain"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	assert.Empty(t, quiet.FormatError(nil))
	assert.Equal(t, "Error: missing latitude", quiet.FormatError(ConfigError("missing latitude").Build()))
	assert.Contains(t, quiet.FormatError(InternalError("boom").Build()), "use -v")
	assert.Contains(t, verbose.FormatError(InternalError("boom").Build()), "[internal:fatal] boom")
	assert.Equal(t, "Error: plain", quiet.FormatError(fmt.Errorf("plain")))
}

func TestCLIErrorAdapter_LogsContext(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewCLIErrorAdapter(true, slog.New(slog.NewTextHandler(&buf, nil)))

	adapter.logError(fmt.Errorf("run: %w", ApplyError("refresh failed").WithContext("path", "/data/index.json").Build()))
	out := buf.String()
	assert.Contains(t, out, "category=apply")
	assert.Contains(t, out, "retry=next_cycle")
	assert.Contains(t, out, "path=/data/index.json")
}
