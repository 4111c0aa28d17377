package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Count int `json:"count"`
}

func TestFailure_Kinds(t *testing.T) {
	u := Unavailable("graph backend not available", "enable capabilities.graph")
	assert.True(t, errors.Is(u, ErrUnavailable))
	assert.False(t, errors.Is(u, ErrInsufficientData))
	assert.Equal(t, "graph backend not available: enable capabilities.graph", u.Error())

	i := Insufficient("Not enough functions found", "")
	assert.True(t, errors.Is(i, ErrInsufficientData))
	assert.Equal(t, "Not enough functions found", i.Error())
}

func TestOutcomeOf(t *testing.T) {
	ok := OutcomeOf(&sample{Count: 3}, nil)
	assert.True(t, ok.OK())
	assert.False(t, ok.Skipped())

	wrapped := fmt.Errorf("wrap: %w", Unavailable("x", "y"))
	failed := OutcomeOf[sample](nil, wrapped)
	require.NotNil(t, failed.Failure)
	assert.Equal(t, "x", failed.Failure.Err)
	assert.False(t, failed.OK())

	plain := OutcomeOf[sample](nil, errors.New("boom"))
	require.NotNil(t, plain.Failure)
	assert.Equal(t, "analysis failed", plain.Failure.Err)
	assert.Equal(t, "boom", plain.Failure.Message)

	var skipped Outcome[sample]
	assert.True(t, skipped.Skipped())
	assert.Nil(t, skipped.Data())
}

func TestOutcome_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Outcome[sample]
		want string
	}{
		{"value", Succeeded(&sample{Count: 2}), `{"count":2}`},
		{"failure", Failed[sample](Unavailable("missing", "install it")), `{"error":"missing","message":"install it"}`},
		{"skipped", Outcome[sample]{}, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))
		})
	}
}
