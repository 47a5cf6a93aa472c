package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"videorag/internal/domain"
)

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama3-8b-8192"
	DefaultTemperature = 0.7
)

// Config configures the chat completion client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client sends single-turn chat completions to an OpenAI-compatible endpoint.
type Client struct {
	model       string
	temperature float32
	client      *goopenai.Client
}

// NewClient builds a client. BaseURL may be the API root or the full
// chat/completions endpoint.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = NormalizeBaseURL(cfg.BaseURL)
	oc.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: captureTransport{base: http.DefaultTransport},
	}
	return &Client{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      goopenai.NewClientWithConfig(oc),
	}
}

// APIKeyFromEnv reads the bearer token from the named environment variable.
func APIKeyFromEnv(name string) (string, error) {
	key := os.Getenv(name)
	if key == "" {
		return "", fmt.Errorf("missing API key in env %s", name)
	}
	return key, nil
}

// NormalizeBaseURL strips a trailing /chat/completions so that a full
// endpoint URL can be configured.
func NormalizeBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	return strings.TrimSuffix(u, "/chat/completions")
}

// Complete returns the first choice's message text.
func (c *Client) Complete(ctx context.Context, p domain.Prompt) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: p.System},
			{Role: goopenai.ChatMessageRoleUser, Content: p.User},
		},
		Temperature: c.temperature,
	}
	ctx, raw := withCapture(ctx)
	rsp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(rsp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrMalformedResponse)
	}
	if !hasContent(raw.data) {
		return "", fmt.Errorf("%w: first choice has no message content", domain.ErrMalformedResponse)
	}
	return rsp.Choices[0].Message.Content, nil
}

// maxErrorBody caps how much of a failed response is kept for display.
const maxErrorBody = 512

func errorBody(body []byte, fallback error) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		if fallback != nil {
			return fallback.Error()
		}
		return ""
	}
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return text
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &domain.HTTPError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.HTTPError{StatusCode: reqErr.HTTPStatusCode, Body: errorBody(reqErr.Body, reqErr.Err)}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrTransport, err)
}
