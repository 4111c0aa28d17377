package progress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_NonTerminalWriter(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("Loading sources", WithWriter(&buf))
	assert.Nil(t, s.bar)

	s.FinishSuccess()
	assert.Empty(t, buf.String())
}

func TestSpinner_FinishMessages(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*Spinner)
		want   string
	}{
		{"skipped", func(s *Spinner) { s.FinishSkipped("bandit not installed") }, "  Scanning skipped (bandit not installed)\n"},
		{"error", func(s *Spinner) { s.FinishError(errors.New("boom")) }, "  Scanning error: boom\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := NewSpinner("Scanning", WithWriter(&buf), Quiet())
			tt.finish(s)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestSpinner_Describe(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("Loading", WithWriter(&buf))
	s.Describe("Cloning panbanda/insight")
	s.FinishSkipped("cached")
	assert.Equal(t, "  Cloning panbanda/insight skipped (cached)\n", buf.String())
}
