package adapter_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/courseguide/pkg/adapter"
	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type claudeRequest struct {
	Model     string `json:"model"`
	MaxTokens int64  `json:"max_tokens"`
	System    []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role string `json:"role"`
	} `json:"messages"`
}

func newClaude(t *testing.T, status int, body string, captured *claudeRequest) *adapter.Claude {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Path, "/v1/messages")
		gt.Equal(t, r.Header.Get("X-Api-Key"), "test-key")

		if captured != nil {
			raw, err := io.ReadAll(r.Body)
			gt.NoError(t, err)
			gt.NoError(t, json.Unmarshal(raw, captured))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := adapter.NewClaude("test-key",
		adapter.WithClaudeModel("claude-test"),
		adapter.WithClaudeRequestOptions(option.WithBaseURL(srv.URL), option.WithMaxRetries(0)),
	)
	gt.NoError(t, err)
	return c
}

func TestNewClaudeRequiresKey(t *testing.T) {
	_, err := adapter.NewClaude("")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagConfiguration))
}

func TestClaudeReply(t *testing.T) {
	var req claudeRequest
	c := newClaude(t, http.StatusOK, `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-test",
  "content": [{"type": "text", "text": "Te recomiendo "}, {"type": "text", "text": "**Negociación**."}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`, &req)

	history := model.History{model.NewUserMessage("Hola"), model.NewModelMessage("¿Qué buscas?")}
	answer, err := c.Reply(context.Background(), "INSTRUCTION", history, "Un curso de ventas")
	gt.NoError(t, err)
	gt.Equal(t, answer, "Te recomiendo **Negociación**.")

	gt.Equal(t, req.Model, "claude-test")
	gt.Equal(t, req.MaxTokens, int64(4096))
	gt.A(t, req.System).Length(1)
	gt.Equal(t, req.System[0].Text, "INSTRUCTION")
	gt.A(t, req.Messages).Length(3)
	gt.Equal(t, req.Messages[0].Role, "user")
	gt.Equal(t, req.Messages[1].Role, "assistant")
	gt.Equal(t, req.Messages[2].Role, "user")
}

func TestClaudeReplyErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		errTyp string
		want   model.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, "authentication_error", model.ErrorKindUpstreamAuth},
		{"forbidden", http.StatusForbidden, "permission_error", model.ErrorKindUpstreamAuth},
		{"rate limited", http.StatusTooManyRequests, "rate_limit_error", model.ErrorKindUpstreamQuota},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClaude(t, tc.status, `{"type":"error","error":{"type":"`+tc.errTyp+`","message":"failure"}}`, nil)

			_, err := c.Reply(context.Background(), "INSTRUCTION", nil, "hola")
			gt.Error(t, err)
			gt.Equal(t, model.Classify(err), tc.want)
		})
	}
}
