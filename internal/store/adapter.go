package store

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/cchalm/shopchat/internal/chat"
)

// DefaultKey is the storage slot that holds the conversation list
const DefaultKey = "electroshop_chats"

// Adapter reads and writes the bounded conversation list. Persistence is best-effort: failures are logged and never
// returned to the caller.
type Adapter struct {
	backend Backend
	key     string
}

// NewAdapter creates an adapter over backend using DefaultKey
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend, key: DefaultKey}
}

// Load returns the stored conversations in storage order. Absent, empty, unreadable or malformed storage all yield
// an empty list.
func (a *Adapter) Load(ctx context.Context) []chat.Conversation {
	b, err := a.backend.Read(ctx, a.key)
	if err != nil {
		log.Warn().Err(err).Str("key", a.key).Msg("Failed to read conversations")
		return []chat.Conversation{}
	}
	if len(b) == 0 {
		return []chat.Conversation{}
	}
	var convs []chat.Conversation
	if err := json.Unmarshal(b, &convs); err != nil {
		log.Warn().Err(err).Str("key", a.key).Msg("Failed to parse stored conversations")
		return []chat.Conversation{}
	}
	if convs == nil {
		return []chat.Conversation{}
	}
	return convs
}

// Save sorts convs most-recent-first, keeps the first MaxConversations, and writes them. It returns what was
// written, or convs unchanged if writing failed.
func (a *Adapter) Save(ctx context.Context, convs []chat.Conversation) []chat.Conversation {
	limited := SortByRecency(convs)
	if len(limited) > chat.MaxConversations {
		limited = limited[:chat.MaxConversations]
	}

	b, err := json.Marshal(limited)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal conversations")
		return convs
	}
	if err := a.backend.Write(ctx, a.key, b); err != nil {
		log.Warn().Err(err).Str("key", a.key).Msg("Failed to save conversations")
		return convs
	}
	return limited
}

// SortByRecency returns a copy of convs sorted by descending LastUpdated. Ties keep their input order.
func SortByRecency(convs []chat.Conversation) []chat.Conversation {
	sorted := slices.Clone(convs)
	slices.SortStableFunc(sorted, func(a, b chat.Conversation) int {
		switch {
		case a.LastUpdated > b.LastUpdated:
			return -1
		case a.LastUpdated < b.LastUpdated:
			return 1
		}
		return 0
	})
	if sorted == nil {
		sorted = []chat.Conversation{}
	}
	return sorted
}
