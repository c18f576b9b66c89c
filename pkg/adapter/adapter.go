package adapter

import (
	"context"

	"github.com/m-mizutani/courseguide/pkg/model"
)

// ChatModel is a model provider able to continue a conversation: it starts a
// session with a system instruction and prior turns, submits one user turn
// and returns the text reply.
type ChatModel interface {
	Reply(ctx context.Context, instruction string, history model.History, text string) (string, error)
}
