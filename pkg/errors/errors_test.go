package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesMatchWrappedErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{"not found", fmt.Errorf("loading meeting m1: %w", ErrNotFound), IsNotFound},
		{"validation", fmt.Errorf("bad options: %w", ErrValidation), IsValidation},
		{"not configured", fmt.Errorf("asr: %w", ErrNotConfigured), IsNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.predicate(tt.err))
		})
	}
}

func TestPredicatesRejectOtherErrors(t *testing.T) {
	other := fmt.Errorf("something else")
	assert.False(t, IsNotFound(other))
	assert.False(t, IsNotConfigured(other))
	assert.False(t, IsValidation(other))
	assert.False(t, IsNotFound(nil))
}
