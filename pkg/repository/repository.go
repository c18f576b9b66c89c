package repository

import (
	"github.com/m-mizutani/courseguide/pkg/model"
)

// Conversations holds conversation histories keyed by identifier
type Conversations interface {
	// Get returns a copy of the history, or an empty history if absent
	Get(id model.ConversationID) model.History

	// Append adds one user/model pair, creating the conversation if absent
	Append(id model.ConversationID, user, reply model.Message)

	// Lock serializes exchanges on one conversation. Call the returned
	// function to release it.
	Lock(id model.ConversationID) (unlock func())

	// Len returns the number of stored conversations
	Len() int
}
