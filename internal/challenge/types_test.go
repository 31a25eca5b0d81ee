package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ABCDEF", Normalize("  abCdEf  "))
	assert.Equal(t, "AB3DE9", Normalize("ab3de9\n"))
	assert.Equal(t, "", Normalize("   "))
}

func TestCleanAndSanitize(t *testing.T) {
	tests := []struct {
		in, clean, sanitized string
	}{
		{"aB3-dE9", "aB3dE9", "AB3DE9"},
		{"  Xy7Qp2zz ", "Xy7Qp2", "XY7QP2"},
		{"**", "", ""},
		{"Here it is: k9", "Hereit", "HEREIT"},
		{"é1ü2", "12", "12"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.clean, Clean(tt.in))
			assert.Equal(t, tt.sanitized, Sanitize(tt.in))
		})
	}
}
