package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(11) 98765-4321", "5511987654321"},
		{"5511987654321", "5511987654321"},
		{"+55 11 98765-4321", "5511987654321"},
		{"11 3456-7890", "551134567890"},
		{"", ""},
		{"ramal 123", ""},
		{"98765-4321", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), "input %q", tt.in)
	}
}
