package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/courseguide/pkg/adapter"
	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/courseguide/pkg/repository"
	"github.com/m-mizutani/courseguide/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Recorder receives exchange observations, e.g. for metrics
type Recorder interface {
	ObserveExchange(d time.Duration, err error)
	SetConversations(n int)
}

// Service answers user questions within a conversation. It is the only
// writer of the conversation store.
type Service struct {
	chatModel   adapter.ChatModel
	store       repository.Conversations
	instruction fmt.Stringer
	recorder    Recorder
	timeout     time.Duration
}

type Option func(*Service)

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithTimeout bounds each model call. Zero means no deadline besides the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// New creates the service. chatModel may be nil when no provider credential
// is configured; Converse then fails with a configuration error.
func New(chatModel adapter.ChatModel, store repository.Conversations, instruction fmt.Stringer, opts ...Option) *Service {
	s := &Service{
		chatModel:   chatModel,
		store:       store,
		instruction: instruction,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a model provider is available
func (s *Service) Configured() bool {
	return s.chatModel != nil
}

type ConverseInput struct {
	Text string
	// ConversationID continues an existing conversation. Empty starts a new one.
	ConversationID model.ConversationID
}

type ConverseOutput struct {
	Answer         string
	ConversationID model.ConversationID
	SourcesUsed    []string
}

// Converse runs one exchange: load history, ask the model, append the turn.
// The three steps hold the conversation lock, and the store is left untouched
// when the model call fails.
func (s *Service) Converse(ctx context.Context, input ConverseInput) (*ConverseOutput, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, goerr.Wrap(model.ErrEmptyMessage, "can not converse with empty text")
	}
	if s.chatModel == nil {
		return nil, goerr.Wrap(model.ErrMissingCredential, "no model provider")
	}

	id := input.ConversationID
	if id == "" {
		id = model.NewConversationID()
	}

	logger := logging.From(ctx).With("conversation_id", id)

	unlock := s.store.Lock(id)
	defer unlock()

	history := s.store.Get(id)
	logger.Debug("sending message to model", "history_len", len(history), "text_len", len(text))

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	answer, err := s.chatModel.Reply(callCtx, s.instruction.String(), history, text)
	if s.recorder != nil {
		s.recorder.ObserveExchange(time.Since(started), err)
	}
	if err != nil {
		logger.Warn("model exchange failed", "error", err, "kind", model.Classify(err).String())
		return nil, goerr.Wrap(err, "failed to get model reply", goerr.V("conversation_id", id))
	}

	s.store.Append(id, model.NewUserMessage(text), model.NewModelMessage(answer))
	if s.recorder != nil {
		s.recorder.SetConversations(s.store.Len())
	}

	logger.Info("exchange completed", "history_len", len(history)+2, "elapsed", time.Since(started))

	return &ConverseOutput{
		Answer:         answer,
		ConversationID: id,
		SourcesUsed:    []string{},
	}, nil
}

// History returns the stored turns of a conversation
func (s *Service) History(id model.ConversationID) model.History {
	return s.store.Get(id)
}
