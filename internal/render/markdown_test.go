package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/shopchat/internal/chat"
)

func TestMarkdown(t *testing.T) {
	conv := chat.Conversation{
		ID:    "c1",
		Title: "Which laptop for video editing?",
		Messages: []chat.Message{
			chat.UserMessage("Which laptop for video editing?"),
			chat.AssistantMessage("Look for 32GB of RAM.\nA dedicated GPU helps too."),
		},
		LastUpdated: time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC).UnixMilli(),
	}

	md, err := Markdown(conv, time.UTC)
	require.NoError(t, err)

	assert.Contains(t, md, "# Which laptop for video editing?\n")
	assert.Contains(t, md, "_Last updated 2024-03-05 14:07 UTC · 2 messages_")
	assert.Contains(t, md, "## Customer\n\n> Which laptop for video editing?\n")
	assert.Contains(t, md, "## Assistant\n\n> Look for 32GB of RAM.\n> A dedicated GPU helps too.\n")
}

func TestMarkdownEmptyConversation(t *testing.T) {
	md, err := Markdown(chat.Conversation{Title: "New Chat"}, nil)
	require.NoError(t, err)

	assert.Contains(t, md, "# New Chat")
	assert.Contains(t, md, "0 messages")
	assert.NotContains(t, md, "## ")
}
