// Package llm wraps the language model used to route broadcast messages.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

const (
	DefaultModel     = "claude-3-7-sonnet-20250219"
	DefaultMaxTokens = 1024
)

// Completer produces a single text reply for a prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// UpstreamAPIError wraps any failure of the model provider.
type UpstreamAPIError struct {
	Err error
}

func (e *UpstreamAPIError) Error() string {
	return "upstream model API: " + e.Err.Error()
}

func (e *UpstreamAPIError) Unwrap() error {
	return e.Err
}

type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string
	// MaxRetries < 0 keeps the SDK default.
	MaxRetries int
}

// Anthropic is a Completer backed by the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropic(cfg Config) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (a *Anthropic) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		logrus.WithField("model", a.model).WithError(err).Error("Model request failed")
		return "", &UpstreamAPIError{Err: err}
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", &UpstreamAPIError{Err: fmt.Errorf("response %s has no text content", msg.ID)}
	}
	return strings.Join(parts, ""), nil
}
