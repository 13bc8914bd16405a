package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/shopchat/internal/chat"
	"github.com/cchalm/shopchat/internal/session"
)

func TestTranscript_EmptyShowsGreeting(t *testing.T) {
	view := Transcript(session.Snapshot{})
	assert.Equal(t, []Entry{{Class: ClassModel, Text: Greeting}}, view.Entries)
}

func TestTranscript_MessagesInOrder(t *testing.T) {
	view := Transcript(session.Snapshot{
		ActiveID: "1",
		Messages: []chat.Message{chat.UserMessage("q"), chat.AssistantMessage("a")},
	})
	assert.Equal(t, []Entry{{Class: ClassUser, Text: "q"}, {Class: ClassModel, Text: "a"}}, view.Entries)
}

func TestTranscript_PendingAndNotice(t *testing.T) {
	view := Transcript(session.Snapshot{
		ActiveID: "1",
		Messages: []chat.Message{chat.UserMessage("hello")},
		Pending:  true,
	})
	require.Len(t, view.Entries, 2)
	assert.Equal(t, ClassLoader, view.Entries[1].Class)

	view = Transcript(session.Snapshot{
		ActiveID: "1",
		Messages: []chat.Message{chat.UserMessage("hello")},
		Notice:   session.NetworkErrorNotice,
	})
	require.Len(t, view.Entries, 2)
	assert.Equal(t, Entry{Class: ClassError, Text: session.NetworkErrorNotice}, view.Entries[1])
}

func TestTranscript_EscapesText(t *testing.T) {
	view := Transcript(session.Snapshot{
		ActiveID: "1",
		Messages: []chat.Message{chat.UserMessage("<script>alert(1)</script>"), chat.AssistantMessage(`a & b "c" 'd'`)},
	})

	markup := TranscriptMarkup(view)

	assert.NotContains(t, markup, "<script")
	assert.Contains(t, markup, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Equal(t, "a &amp; b &#34;c&#34; &#39;d&#39;", view.Entries[1].Text)
}

func TestTranscriptMarkup_Structure(t *testing.T) {
	markup := TranscriptMarkup(Transcript(session.Snapshot{
		ActiveID: "1",
		Messages: []chat.Message{chat.UserMessage("hi")},
		Pending:  true,
	}))
	assert.Equal(t, `<div class="user"><p>hi</p></div><div class="loader"></div>`, markup)
}

func TestHistory(t *testing.T) {
	loc := time.FixedZone("test", 0)
	convs := []chat.Conversation{
		{ID: "b", Title: "<b>bold</b>", LastUpdated: time.Date(2025, 3, 9, 14, 5, 0, 0, loc).UnixMilli()},
		{ID: "a", Title: "plain", LastUpdated: time.Date(2025, 3, 8, 9, 30, 0, 0, loc).UnixMilli()},
	}

	view := History(session.Snapshot{ActiveID: "a"}, convs, loc)

	assert.False(t, view.Empty)
	assert.Equal(t, []HistoryItem{
		{ID: "b", Title: "&lt;b&gt;bold&lt;/b&gt;", Timestamp: "3/9/2025 14:05", Active: false},
		{ID: "a", Title: "plain", Timestamp: "3/8/2025 09:30", Active: true},
	}, view.Items)
}

func TestHistory_NoActive(t *testing.T) {
	view := History(session.Snapshot{}, []chat.Conversation{{ID: "a"}}, time.UTC)
	assert.False(t, view.Items[0].Active)
}

func TestHistoryMarkup(t *testing.T) {
	assert.Equal(t, `<div class="no-chats">No chat history yet</div>`, HistoryMarkup(History(session.Snapshot{}, nil, time.UTC)))

	markup := HistoryMarkup(History(session.Snapshot{ActiveID: "x"}, []chat.Conversation{{ID: "x", Title: "<i>"}}, time.UTC))
	assert.True(t, strings.HasPrefix(markup, `<div class="history-item active" data-chat-id="x">`))
	assert.Contains(t, markup, `<div class="history-title">&lt;i&gt;</div>`)
}
