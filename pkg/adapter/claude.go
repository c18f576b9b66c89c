package adapter

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultClaudeModel     = "claude-sonnet-4-5"
	defaultClaudeMaxTokens = 4096
)

// Claude implements ChatModel with the Anthropic Messages API
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	reqOpts   []option.RequestOption
}

type ClaudeOption func(*Claude)

func WithClaudeModel(name string) ClaudeOption {
	return func(c *Claude) {
		if name != "" {
			c.model = name
		}
	}
}

func WithMaxTokens(n int64) ClaudeOption {
	return func(c *Claude) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithClaudeRequestOptions passes options to the Anthropic client, e.g.
// option.WithBaseURL or option.WithMaxRetries
func WithClaudeRequestOptions(opts ...option.RequestOption) ClaudeOption {
	return func(c *Claude) {
		c.reqOpts = append(c.reqOpts, opts...)
	}
}

func NewClaude(apiKey string, opts ...ClaudeOption) (*Claude, error) {
	if apiKey == "" {
		return nil, goerr.Wrap(model.ErrMissingCredential, "anthropic api key is empty")
	}

	c := &Claude{
		model:     DefaultClaudeModel,
		maxTokens: defaultClaudeMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.reqOpts...)...)
	return c, nil
}

func (c *Claude) Reply(ctx context.Context, instruction string, history model.History, text string) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, msg := range history {
		if msg.Role == model.RoleModel {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text())))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text())))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: instruction}},
		Messages:  messages,
	})
	if err != nil {
		opts := []goerr.Option{goerr.V("model", c.model)}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			opts = append(opts, goerr.V("status_code", apiErr.StatusCode))
			if tagOpt, ok := model.StatusTag(apiErr.StatusCode); ok {
				opts = append(opts, tagOpt)
			}
		}
		return "", goerr.Wrap(err, "failed to send message to claude", opts...)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", goerr.Wrap(model.ErrEmptyModelResponse, "claude reply has no text", goerr.V("model", c.model))
	}

	return sb.String(), nil
}
