package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/"},
		{"/patients?page=2", "/patients?page=2"},
		{"//evil.example", "/"},
		{"/\\evil.example", "/"},
		{"https://evil.example/", "/"},
		{"patients", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.next), tt.next)
	}
}
