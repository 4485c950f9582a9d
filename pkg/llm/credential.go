package llm

import (
	"strings"

	"github.com/aarondl/opt/null"
)

// Credential is the API key for the model backend.
// The zero value is an absent credential.
type Credential struct {
	key null.Val[string]
}

// NewCredential creates a credential. Blank keys yield an absent credential.
func NewCredential(key string) Credential {
	key = strings.TrimSpace(key)
	if key == "" {
		return Credential{}
	}
	return Credential{key: null.From(key)}
}

func (c Credential) Present() bool { return c.key.IsValue() }

func (c Credential) Key() string { return c.key.GetOr("") }

// String masks the key
func (c Credential) String() string {
	if !c.Present() {
		return "<absent>"
	}
	k := c.Key()
	if len(k) <= 4 {
		return "****"
	}
	return "****" + k[len(k)-4:]
}
