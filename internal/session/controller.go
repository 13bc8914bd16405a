// Package session owns the single open conversation and decides when it is persisted.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cchalm/shopchat/internal/chat"
)

// DefaultRelayTimeout bounds a single relay call
const DefaultRelayTimeout = 20 * time.Second

// NetworkErrorNotice is the transient notice shown after a failed relay call
const NetworkErrorNotice = "Network error. Please try again."

var (
	// ErrBusy is returned when a mutation is attempted while a relay call is in flight
	ErrBusy = errors.New("a message is already being sent")
	// ErrRelay wraps every relay failure
	ErrRelay = errors.New("relay request failed")
)

// Relay sends a user message and the prior history to the relay and returns the reply text
type Relay interface {
	Send(ctx context.Context, message string, history []chat.Message) (string, error)
}

// Conversations is the durable conversation storage the controller persists to
type Conversations interface {
	FindByID(ctx context.Context, id string) (chat.Conversation, bool)
	Upsert(ctx context.Context, conv chat.Conversation) []chat.Conversation
	Delete(ctx context.Context, id string)
}

// Snapshot is a copy of the controller state at one point in time
type Snapshot struct {
	ActiveID string
	Messages []chat.Message
	// Pending is true while a relay call is in flight
	Pending bool
	// Notice is a transient error message that is never persisted
	Notice string
}

// Active reports whether a conversation is open
func (s Snapshot) Active() bool {
	return s.ActiveID != "" || len(s.Messages) > 0
}

// Controller owns the active session. It is safe for concurrent use; mutations are rejected with ErrBusy while a
// send is waiting on the relay.
type Controller struct {
	conversations Conversations
	relay         Relay
	timeout       time.Duration
	newID         func() string
	now           func() time.Time

	mu       sync.Mutex
	activeID string
	draft    []chat.Message
	pending  bool
	notice   string
}

// Option configures a Controller
type Option func(*Controller)

// WithRelayTimeout sets the relay call timeout. Non-positive values keep the default.
func WithRelayTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithIDGenerator sets the function used to mint conversation ids
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// WithClock sets the time source used for lastUpdated
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) { c.now = fn }
}

// New creates a controller in the empty state
func New(conversations Conversations, relay Relay, opts ...Option) *Controller {
	c := &Controller{
		conversations: conversations,
		relay:         relay,
		timeout:       DefaultRelayTimeout,
		newID:         uuid.NewString,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ActiveID: c.activeID,
		Messages: slices.Clone(c.draft),
		Pending:  c.pending,
		Notice:   c.notice,
	}
}

// StartNew persists the open conversation, if it has messages, and resets to the empty state
func (c *Controller) StartNew(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return ErrBusy
	}

	c.persistLocked(ctx)
	c.resetLocked()
	return nil
}

// Load opens the stored conversation with the given id. Unknown ids are ignored. An open conversation with a
// different id is persisted first.
func (c *Controller) Load(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return ErrBusy
	}

	// Read the target before persisting, which could otherwise evict it
	target, found := c.conversations.FindByID(ctx, id)
	if !found {
		log.Debug().Str("conversation_id", id).Msg("Ignoring load of unknown conversation")
		return nil
	}
	if c.activeID != id && len(c.draft) > 0 {
		c.persistLocked(ctx)
	}

	c.activeID = target.ID
	c.draft = slices.Clone(target.Messages)
	c.notice = ""
	return nil
}

// SendUserMessage appends a user message, asks the relay for a reply, and persists the conversation once the reply
// arrives. Blank text is ignored. On relay failure the user message stays in the draft, nothing is persisted, and the
// returned error wraps ErrRelay.
func (c *Controller) SendUserMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.activeID == "" {
		c.activeID = c.newID()
	}
	history := slices.Clone(c.draft)
	c.draft = append(c.draft, chat.UserMessage(text))
	c.pending = true
	c.notice = ""
	id := c.activeID
	c.mu.Unlock()

	relayCtx, cancel := context.WithTimeout(ctx, c.timeout)
	reply, err := c.relay.Send(relayCtx, text, history)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	if err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("Relay request failed")
		c.notice = NetworkErrorNotice
		return fmt.Errorf("%w: %w", ErrRelay, err)
	}

	c.draft = append(c.draft, chat.AssistantMessage(reply))
	c.persistLocked(ctx)
	return nil
}

// DeleteConversation removes a stored conversation. Deleting the open conversation resets to the empty state without
// persisting it again.
func (c *Controller) DeleteConversation(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return ErrBusy
	}

	c.conversations.Delete(ctx, id)
	if id == c.activeID {
		c.resetLocked()
	}
	return nil
}

// persistLocked upserts the draft as a conversation. The title of an already stored conversation is kept.
func (c *Controller) persistLocked(ctx context.Context) {
	if len(c.draft) == 0 {
		return
	}
	if c.activeID == "" {
		c.activeID = c.newID()
	}

	title := chat.DeriveTitle(c.draft)
	if existing, found := c.conversations.FindByID(ctx, c.activeID); found && existing.Title != "" {
		title = existing.Title
	}

	c.conversations.Upsert(ctx, chat.Conversation{
		ID:          c.activeID,
		Title:       title,
		Messages:    slices.Clone(c.draft),
		LastUpdated: c.now().UnixMilli(),
	})
	log.Debug().Str("conversation_id", c.activeID).Int("messages", len(c.draft)).Msg("Persisted conversation")
}

func (c *Controller) resetLocked() {
	c.activeID = ""
	c.draft = nil
	c.notice = ""
}
