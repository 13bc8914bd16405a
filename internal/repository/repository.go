// Package repository provides create, update and delete operations over the stored conversation list.
package repository

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/cchalm/shopchat/internal/chat"
	"github.com/cchalm/shopchat/internal/store"
)

// Persister is the durable storage the repository reads from and writes through
type Persister interface {
	Load(ctx context.Context) []chat.Conversation
	Save(ctx context.Context, convs []chat.Conversation) []chat.Conversation
}

// Repository manages conversation records. Every call re-reads storage, so the view never drifts from what was
// durably written.
type Repository struct {
	persister Persister
}

// New creates a repository over the given storage
func New(persister Persister) *Repository {
	return &Repository{persister: persister}
}

// List returns all stored conversations, most recently updated first
func (r *Repository) List(ctx context.Context) []chat.Conversation {
	return store.SortByRecency(r.persister.Load(ctx))
}

// FindByID returns the conversation with the given id
func (r *Repository) FindByID(ctx context.Context, id string) (chat.Conversation, bool) {
	for _, c := range r.persister.Load(ctx) {
		if c.ID == id {
			return c, true
		}
	}
	return chat.Conversation{}, false
}

// Upsert replaces the conversation with the same id, or inserts it, and persists. It returns the stored list after
// sorting and eviction.
func (r *Repository) Upsert(ctx context.Context, conv chat.Conversation) []chat.Conversation {
	convs := slices.DeleteFunc(r.persister.Load(ctx), func(c chat.Conversation) bool {
		return c.ID == conv.ID
	})
	convs = append(convs, conv.Clone())

	saved := r.persister.Save(ctx, convs)
	if !slices.ContainsFunc(saved, func(c chat.Conversation) bool { return c.ID == conv.ID }) {
		log.Debug().Str("conversation_id", conv.ID).Msg("Upserted conversation was evicted")
	}
	return saved
}

// Delete removes the conversation with the given id. Deleting an unknown id writes nothing.
func (r *Repository) Delete(ctx context.Context, id string) {
	convs := r.persister.Load(ctx)
	i := slices.IndexFunc(convs, func(c chat.Conversation) bool { return c.ID == id })
	if i < 0 {
		return
	}
	r.persister.Save(ctx, slices.Delete(convs, i, i+1))
}
