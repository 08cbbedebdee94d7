package websearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGoogleClientRequiresCredentials(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		cx     string
	}{
		{"Missing both", "", ""},
		{"Missing API key", "", "engine-id"},
		{"Missing engine id", "key", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGoogleClient(context.Background(), tt.apiKey, tt.cx)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}
