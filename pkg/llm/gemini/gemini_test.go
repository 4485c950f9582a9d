package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/mpapenbr/tirecast/pkg/llm"
)

func TestNewWithoutCredential(t *testing.T) {
	_, err := New(context.Background(), llm.Credential{})
	assert.ErrorIs(t, err, llm.ErrMissingCredential)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want llm.ErrorKind
	}{
		{"quota", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, llm.KindRateLimited},
		{
			"quota on key",
			genai.APIError{Code: 429, Message: "Quota exceeded for quota metric on api_key consumer"},
			llm.KindRateLimited,
		},
		{"unauthorized", genai.APIError{Code: 401, Status: "UNAUTHENTICATED"}, llm.KindCredential},
		{
			"invalid key",
			genai.APIError{Code: 400, Message: "API key not valid. Please pass a valid API key."},
			llm.KindCredential,
		},
		{"gateway timeout", genai.APIError{Code: 504}, llm.KindNetwork},
		{"unavailable", genai.APIError{Code: 503, Status: "UNAVAILABLE"}, llm.KindNetwork},
		{"bad request", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}, llm.KindFatal},
		{"other", errors.New("boom"), llm.KindFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llm.Classify(translate(tt.err)))
		})
	}
}
