package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/llm"
)

const DefaultModel = "gemini-2.5-flash"

type (
	Backend struct {
		l           *log.Logger
		client      *genai.Client
		model       string
		temperature *float32
	}
	config struct {
		model       string
		temperature *float32
		httpClient  *http.Client
	}
	Option func(*config)
)

func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

func WithTemperature(t float32) Option {
	return func(c *config) {
		c.temperature = &t
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// Factory returns a llm.BackendFactory creating Gemini backends.
// Outgoing requests are traced via otelhttp unless a http client is provided.
func Factory(opts ...Option) llm.BackendFactory {
	return func(ctx context.Context, cred llm.Credential) (llm.Backend, error) {
		return New(ctx, cred, opts...)
	}
}

func New(ctx context.Context, cred llm.Credential, opts ...Option) (*Backend, error) {
	if !cred.Present() {
		return nil, llm.ErrMissingCredential
	}
	cfg := &config{model: DefaultModel}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cred.Key(),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Backend{
		l:           log.Default().Named("llm.gemini"),
		client:      client,
		model:       cfg.model,
		temperature: cfg.temperature,
	}, nil
}

func (b *Backend) Generate(ctx context.Context, prompt string) (string, error) {
	var genCfg *genai.GenerateContentConfig
	if b.temperature != nil {
		genCfg = &genai.GenerateContentConfig{Temperature: b.temperature}
	}
	b.l.Debug("sending prompt", log.String("model", b.model), log.Int("length", len(prompt)))
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", translate(err)
	}
	if resp == nil {
		return "", llm.ErrEmptyResponse
	}
	return resp.Text(), nil
}

// translate adds markers to API errors which llm.Classify understands
func translate(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("rate limit: %w", err)
	case apiErr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", llm.ErrInvalidCredential, err)
	case apiErr.Code == http.StatusRequestTimeout,
		apiErr.Code == http.StatusGatewayTimeout:
		return fmt.Errorf("timeout: %w", err)
	case apiErr.Code >= http.StatusInternalServerError:
		return fmt.Errorf("network: %w", err)
	default:
		return err
	}
}
