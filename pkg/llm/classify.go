package llm

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrorKind is the classification of a backend failure
type ErrorKind int

const (
	KindFatal ErrorKind = iota
	KindCredential
	KindRateLimited
	KindNetwork
)

var (
	credentialMarkers  = []string{"api key", "api_key"}
	rateLimitedMarkers = []string{"rate limit", "quota", "resource_exhausted"}
	networkMarkers     = []string{"network", "timeout", "timed out"}
)

func (k ErrorKind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindRateLimited:
		return "rate-limited"
	case KindNetwork:
		return "network"
	default:
		return "fatal"
	}
}

// Transient reports if an attempt failing with this kind may be repeated
func (k ErrorKind) Transient() bool {
	return k == KindRateLimited || k == KindNetwork
}

// Classify maps a backend error to an ErrorKind.
// The backends don't provide typed errors for all cases, so the message is
// inspected as a last resort.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindFatal
	}
	switch {
	case errors.Is(err, ErrMissingCredential), errors.Is(err, ErrInvalidCredential):
		return KindCredential
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	case errors.Is(err, context.Canceled):
		return KindFatal
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	contains := func(markers []string) bool {
		for _, m := range markers {
			if strings.Contains(msg, m) {
				return true
			}
		}
		return false
	}
	switch {
	case contains(rateLimitedMarkers):
		return KindRateLimited
	case contains(networkMarkers):
		return KindNetwork
	case contains(credentialMarkers):
		return KindCredential
	default:
		return KindFatal
	}
}
