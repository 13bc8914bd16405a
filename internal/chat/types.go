// Package chat defines the conversation data model shared by the client core and the relay.
package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxConversations is the number of conversations kept in durable storage
const MaxConversations = 5

const (
	titleLimit   = 40
	titleSuffix  = "…"
	defaultTitle = "New Chat"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// roleModel is the assistant role name used by older stored records and clients
	roleModel Role = "model"
)

// ParseRole normalizes a wire role name. Unknown roles are rejected.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant, roleModel:
		return RoleAssistant, nil
	}
	return "", fmt.Errorf("unknown message role %q", s)
}

// Message is a single immutable chat turn
type Message struct {
	Role Role
	Text string
}

// UserMessage creates a message authored by the user
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantMessage creates a message authored by the assistant
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

// Part is one text segment of a wire message
type Part struct {
	Text string `json:"text"`
}

// wireMessage is the JSON shape of a message in storage and in relay requests
type wireMessage struct {
	Role    string `json:"role"`
	Parts   []Part `json:"parts,omitempty"`
	Content string `json:"content,omitempty"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		Role:  string(m.Role),
		Parts: []Part{{Text: m.Text}},
	})
}

// UnmarshalJSON accepts both the parts form and the legacy content form
func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	role, err := ParseRole(w.Role)
	if err != nil {
		return err
	}
	text := w.Content
	if len(w.Parts) > 0 {
		text = w.Parts[0].Text
	}
	*m = Message{Role: role, Text: text}
	return nil
}

// Conversation is one persisted chat thread
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
	// LastUpdated is in Unix milliseconds
	LastUpdated int64 `json:"lastUpdated"`
}

// UnmarshalJSON decodes a stored conversation. Messages that cannot be decoded, such as ones with a role this
// package does not know, are dropped so the rest of the record survives.
func (c *Conversation) UnmarshalJSON(b []byte) error {
	type record Conversation
	var raw struct {
		record
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = Conversation(raw.record)
	c.Messages = make([]Message, 0, len(raw.Messages))
	for _, rm := range raw.Messages {
		var m Message
		if err := json.Unmarshal(rm, &m); err != nil {
			continue
		}
		c.Messages = append(c.Messages, m)
	}
	return nil
}

// UpdatedAt returns LastUpdated as a time
func (c Conversation) UpdatedAt() time.Time {
	return time.UnixMilli(c.LastUpdated)
}

// Clone returns a copy that shares no message storage with c
func (c Conversation) Clone() Conversation {
	c.Messages = append([]Message(nil), c.Messages...)
	return c
}

// DeriveTitle returns the title for a conversation with the given messages: the first user message, cut to 40
// characters with an ellipsis when longer.
func DeriveTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		text := strings.TrimSpace(m.Text)
		if utf8.RuneCountInString(text) <= titleLimit {
			return text
		}
		return string([]rune(text)[:titleLimit]) + titleSuffix
	}
	return defaultTitle
}
