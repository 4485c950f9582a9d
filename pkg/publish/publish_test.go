package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"bahrain", "bahrain"},
		{"British GP 2024 (Silverstone)", "british-gp-2024-silverstone"},
		{"  Monaco GP 2024 ", "monaco-gp-2024"},
		{"São Paulo", "são-paulo"},
		{"***", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "tirecast.reports.monaco-gp-2024",
		Subject(DefaultSubjectPrefix, "Monaco GP 2024"))
	p := NewNatsPublisher(nil, WithSubjectPrefix("test.out"))
	assert.Equal(t, "test.out.bahrain", p.Subject("bahrain"))
}

func TestNoop(t *testing.T) {
	p := Noop()
	assert.NoError(t, p.Publish(context.Background(), Message{Track: "x", Payload: 1}))
	p.Close()
}
