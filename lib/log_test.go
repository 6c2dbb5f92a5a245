package lib

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultLogger(t *testing.T) {
	// pre-define expected
	expected := NewLogger(LoggerConfig{
		Level: DebugLevel,
		Out:   os.Stdout,
	})
	// execute the function call
	got := NewDefaultLogger()
	// compare got vs expected
	require.Equal(t, got, expected)
}

func TestNewNullLogger(t *testing.T) {
	// pre-define expected
	expected := NewLogger(LoggerConfig{
		Level: DebugLevel,
		Out:   io.Discard,
	})
	// execute the function call
	got := NewNullLogger()
	// compare got vs expected
	require.Equal(t, got, expected)
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		level    int32
		log      func(l LoggerI)
		expected string
		filtered bool
	}{
		{
			name:     "info at info",
			detail:   "a message at the configured level is written",
			level:    InfoLevel,
			log:      func(l LoggerI) { l.Infof("batch %d", 1) },
			expected: "INFO: batch 1",
		},
		{
			name:     "debug at info",
			detail:   "a message below the configured level is dropped",
			level:    InfoLevel,
			log:      func(l LoggerI) { l.Debug("hidden") },
			filtered: true,
		},
		{
			name:     "error at warn",
			detail:   "a message above the configured level is written",
			level:    WarnLevel,
			log:      func(l LoggerI) { l.Error("venue down") },
			expected: "ERROR: venue down",
		},
		{
			name:     "print ignores level",
			detail:   "print always writes",
			level:    ErrorLevel,
			log:      func(l LoggerI) { l.Print("plain") },
			expected: "plain",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			test.log(NewLogger(LoggerConfig{Level: test.level, Out: buf}))
			if test.filtered {
				require.Zero(t, buf.Len())
				return
			}
			require.Contains(t, buf.String(), test.expected)
		})
	}
}

func TestNewLoggerWritesToDataDir(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(LoggerConfig{Level: DebugLevel}, dir)
	l.Info("hello")
	_, err := os.Stat(dir + "/" + LogDirectory)
	require.NoError(t, err)
}
