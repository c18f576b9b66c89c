package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConversationID scopes a sequence of turns. Values supplied by callers are
// opaque and used verbatim.
type ConversationID string

const conversationIDPrefix = "conv_"

// NewConversationID mints a new identifier as conv_<unix-millis>_<suffix>.
func NewConversationID() ConversationID {
	return newConversationID(time.Now())
}

func newConversationID(now time.Time) ConversationID {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return ConversationID(conversationIDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix)
}

func (x ConversationID) String() string { return string(x) }

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Part struct {
	Text string `json:"text"`
}

// Message is one entry of a conversation history.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserMessage creates a message authored by the user
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// NewModelMessage creates a message authored by the model
func NewModelMessage(text string) Message {
	return Message{Role: RoleModel, Parts: []Part{{Text: text}}}
}

// Text concatenates all text parts of the message
func (m Message) Text() string {
	if len(m.Parts) == 1 {
		return m.Parts[0].Text
	}

	var sb strings.Builder
	for _, p := range m.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// History is the ordered message sequence of one conversation. Roles
// alternate user, model, user, model...
type History []Message

// Clone returns a deep copy so callers can not alter stored parts.
func (h History) Clone() History {
	out := make(History, len(h))
	for i, m := range h {
		parts := make([]Part, len(m.Parts))
		copy(parts, m.Parts)
		out[i] = Message{Role: m.Role, Parts: parts}
	}
	return out
}

// Alternates reports whether roles strictly alternate starting with user.
func (h History) Alternates() bool {
	for i, m := range h {
		want := RoleUser
		if i%2 == 1 {
			want = RoleModel
		}
		if m.Role != want {
			return false
		}
	}
	return true
}
