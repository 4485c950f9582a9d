package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenMatches(t *testing.T) {
	hashed := HashToken("secret")
	assert.Len(t, hashed, 64)
	assert.NotEqual(t, "secret", hashed)

	tests := []struct {
		name      string
		presented string
		want      bool
	}{
		{name: "match", presented: "secret", want: true},
		{name: "wrong", presented: "secreT", want: false},
		{name: "empty", presented: "", want: false},
		{name: "longer", presented: "secret-and-more", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenMatches(tt.presented, hashed))
		})
	}
}
