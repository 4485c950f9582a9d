package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mpapenbr/tirecast/log"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// FailureSentinel is returned as text when no usable response could be obtained.
// It never parses as a forecast.
const FailureSentinel = "[ERROR] Failed to get response from model after multiple attempts."

var (
	ErrMissingCredential = errors.New("missing model API key")
	ErrInvalidCredential = errors.New("model API key rejected")
	ErrEmptyResponse     = errors.New("empty or invalid response from model")
	ErrBackendExhausted  = errors.New("failed to get response from model after multiple attempts")
	ErrBackendFatal      = errors.New("model backend failed")
)

type (
	// Backend sends a single prompt to a language model
	Backend interface {
		Generate(ctx context.Context, prompt string) (string, error)
	}
	// BackendFactory creates a Backend for a present credential
	BackendFactory func(ctx context.Context, cred Credential) (Backend, error)

	// Attempt describes a failed call to the backend
	Attempt struct {
		Number int
		Err    error
		Kind   ErrorKind
		Delay  time.Duration // wait before next attempt, 0 if none follows
	}
	AttemptObserver func(a Attempt)

	Requester struct {
		l           *log.Logger
		cred        Credential
		factory     BackendFactory
		maxAttempts int
		delay       time.Duration
		observers   []AttemptObserver
	}
	Option func(*Requester)
)

// StaticBackend returns a factory always handing out b
func StaticBackend(b Backend) BackendFactory {
	return func(context.Context, Credential) (Backend, error) { return b, nil }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Requester) {
		r.l = l
	}
}

func WithMaxAttempts(n int) Option {
	return func(r *Requester) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(r *Requester) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithAttemptObserver registers a callback invoked for every failed attempt
func WithAttemptObserver(o AttemptObserver) Option {
	return func(r *Requester) {
		r.observers = append(r.observers, o)
	}
}

func NewRequester(cred Credential, factory BackendFactory, opts ...Option) *Requester {
	ret := &Requester{
		l:           log.Default().Named("llm"),
		cred:        cred,
		factory:     factory,
		maxAttempts: DefaultMaxAttempts,
		delay:       DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Request builds the prompt for raceContext and sends it to the backend.
func (r *Requester) Request(ctx context.Context, raceContext string, h Horizon) (string, error) {
	return r.Send(ctx, BuildPrompt(raceContext, h))
}

// Send sends prompt to the backend.
// Transient failures are retried with a fixed delay. A missing credential or a
// fatal backend error ends the request immediately.
// On failure the FailureSentinel is returned together with the error.
//
//nolint:funlen // retry bookkeeping
func (r *Requester) Send(ctx context.Context, prompt string) (string, error) {
	l := r.logger(ctx)
	if !r.cred.Present() {
		l.Error("no API key configured")
		return FailureSentinel, ErrMissingCredential
	}
	backend, err := r.factory(ctx, r.cred)
	if err != nil {
		l.Error("could not initialize backend", log.ErrorField(err))
		return FailureSentinel, fmt.Errorf("%w: %w", ErrBackendFatal, err)
	}

	attempt := 0
	var last Attempt
	op := func() (string, error) {
		attempt++
		text, err := backend.Generate(ctx, prompt)
		if err == nil {
			text = strings.TrimSpace(text)
			if text != "" {
				return text, nil
			}
			err = ErrEmptyResponse
		}
		last = Attempt{Number: attempt, Err: err, Kind: Classify(err)}
		if !last.Kind.Transient() {
			l.Error("unexpected backend error",
				log.Int("attempt", attempt),
				log.Int("maxAttempts", r.maxAttempts),
				log.String("kind", last.Kind.String()),
				log.ErrorField(err))
			r.observe(last)
			return "", backoff.Permanent(err)
		}
		if attempt >= r.maxAttempts {
			l.Warn("backend failed, no attempts left",
				log.Int("attempt", attempt),
				log.String("kind", last.Kind.String()),
				log.ErrorField(err))
			r.observe(last)
		}
		return "", err
	}
	notify := func(err error, d time.Duration) {
		last.Delay = d
		l.Warn("backend failed, retrying",
			log.Int("attempt", last.Number),
			log.Int("maxAttempts", r.maxAttempts),
			log.String("kind", last.Kind.String()),
			log.Duration("delay", d),
			log.ErrorField(err))
		r.observe(last)
	}

	text, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.delay)),
		backoff.WithMaxTries(uint(r.maxAttempts)), //nolint:gosec // checked in option
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err == nil {
		l.Debug("backend responded",
			log.Int("attempts", attempt),
			log.Int("length", len(text)))
		return text, nil
	}

	switch kind := Classify(err); {
	case errors.Is(err, context.Canceled):
		return FailureSentinel, err
	case kind == KindCredential:
		return FailureSentinel, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	case kind.Transient():
		return FailureSentinel, fmt.Errorf("%w: %w", ErrBackendExhausted, err)
	default:
		return FailureSentinel, fmt.Errorf("%w: %w", ErrBackendFatal, err)
	}
}

func (r *Requester) observe(a Attempt) {
	for _, o := range r.observers {
		o(a)
	}
}

// logger prefers a request scoped logger found in ctx
func (r *Requester) logger(ctx context.Context) *log.Logger {
	if l := log.GetFromContext(ctx); l != log.Default() {
		return l.Named("llm")
	}
	return r.l
}
