// Package fakebackend provides a scripted model backend for tests.
package fakebackend

import (
	"context"
	"errors"
	"sync"
)

// Step is one scripted reply. If Err is set, Text is ignored.
type Step struct {
	Text string
	Err  error
}

// Backend replays its steps in order. The last step is repeated once the
// script is exhausted.
type Backend struct {
	mu      sync.Mutex
	steps   []Step
	prompts []string
}

func New(steps ...Step) *Backend {
	return &Backend{steps: steps}
}

// Failing returns a backend failing n times with err before answering text.
func Failing(n int, err error, text string) *Backend {
	steps := make([]Step, 0, n+1)
	for range n {
		steps = append(steps, Step{Err: err})
	}
	return New(append(steps, Step{Text: text})...)
}

func (b *Backend) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := min(len(b.prompts), len(b.steps)-1)
	b.prompts = append(b.prompts, prompt)
	if idx < 0 {
		return "", errors.New("fakebackend: no steps configured")
	}
	step := b.steps[idx]
	if step.Err != nil {
		return "", step.Err
	}
	return step.Text, nil
}

// Calls returns the number of Generate invocations
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.prompts)
}

// Prompts returns the received prompts
func (b *Backend) Prompts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.prompts...)
}
