// Package gemini connects live sessions to the Gemini Live API through the
// official Go SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

var ErrMissingAPIKey = errors.New("gemini api key not set")

type Client struct {
	apiKey string
	model  string
	client *genai.Client
}

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithModel sets the model checked by Preflight. Open uses the model from the
// session config and falls back to this one.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	c := &Client{apiKey: os.Getenv("GEMINI_API_KEY")}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.client = client
	return c, nil
}

// Preflight checks that an API key is configured and the model is reachable
// with it.
func (c *Client) Preflight(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "gemini preflight")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", c.model))

	if c.apiKey == "" || c.client == nil {
		span.SetStatus(codes.Error, ErrMissingAPIKey.Error())
		return ErrMissingAPIKey
	}
	if c.model == "" {
		return nil
	}

	if _, err := c.client.Models.Get(ctx, c.model, nil); err != nil {
		err = fmt.Errorf("model %q unavailable: %w", c.model, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
