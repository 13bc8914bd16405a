// Package render projects session and repository state into the transcript and history view models.
//
// Every string taken from a message, title or notice is HTML-escaped before it reaches a view model, so bindings can
// insert view text into markup as-is.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/cchalm/shopchat/internal/chat"
	"github.com/cchalm/shopchat/internal/session"
)

const (
	// Greeting is shown in place of the transcript when no conversation is open
	Greeting = "Hi! How can I help you with electronics today?"
	// NoHistory is shown in place of the history list when nothing is stored
	NoHistory = "No chat history yet"

	timestampLayout = "1/2/2006 15:04"
)

// Class is the styling class of a transcript entry
type Class string

const (
	ClassUser   Class = "user"
	ClassModel  Class = "model"
	ClassError  Class = "error"
	ClassLoader Class = "loader"
)

// Entry is one rendered transcript item
type Entry struct {
	Class Class
	// Text is HTML-escaped
	Text string
}

// TranscriptView is the rendered message list
type TranscriptView struct {
	Entries []Entry
}

// HistoryItem is one rendered sidebar entry
type HistoryItem struct {
	ID string
	// Title is HTML-escaped
	Title     string
	Timestamp string
	Active    bool
}

// HistoryView is the rendered sidebar
type HistoryView struct {
	Items []HistoryItem
	// Empty is true when there is nothing to list, in which case bindings show NoHistory
	Empty bool
}

// Transcript renders the open conversation, or the greeting when none is open
func Transcript(snap session.Snapshot) TranscriptView {
	var entries []Entry
	if len(snap.Messages) == 0 {
		entries = append(entries, Entry{Class: ClassModel, Text: html.EscapeString(Greeting)})
	}
	for _, m := range snap.Messages {
		entries = append(entries, Entry{Class: classFor(m.Role), Text: html.EscapeString(m.Text)})
	}
	if snap.Pending {
		entries = append(entries, Entry{Class: ClassLoader})
	}
	if snap.Notice != "" {
		entries = append(entries, Entry{Class: ClassError, Text: html.EscapeString(snap.Notice)})
	}
	return TranscriptView{Entries: entries}
}

func classFor(role chat.Role) Class {
	if role == chat.RoleUser {
		return ClassUser
	}
	return ClassModel
}

// History renders the stored conversations in the given order, formatting times in loc
func History(snap session.Snapshot, convs []chat.Conversation, loc *time.Location) HistoryView {
	if loc == nil {
		loc = time.Local
	}
	view := HistoryView{Empty: len(convs) == 0}
	for _, c := range convs {
		view.Items = append(view.Items, HistoryItem{
			ID:        c.ID,
			Title:     html.EscapeString(c.Title),
			Timestamp: c.UpdatedAt().In(loc).Format(timestampLayout),
			Active:    snap.ActiveID != "" && c.ID == snap.ActiveID,
		})
	}
	return view
}

// TranscriptMarkup renders the transcript as HTML for a web binding
func TranscriptMarkup(view TranscriptView) string {
	var sb strings.Builder
	for _, e := range view.Entries {
		if e.Class == ClassLoader {
			sb.WriteString(`<div class="loader"></div>`)
			continue
		}
		fmt.Fprintf(&sb, `<div class="%s"><p>%s</p></div>`, e.Class, e.Text)
	}
	return sb.String()
}

// HistoryMarkup renders the sidebar as HTML for a web binding
func HistoryMarkup(view HistoryView) string {
	if view.Empty {
		return `<div class="no-chats">` + NoHistory + `</div>`
	}
	var sb strings.Builder
	for _, item := range view.Items {
		class := "history-item"
		if item.Active {
			class += " active"
		}
		fmt.Fprintf(&sb,
			`<div class="%s" data-chat-id="%s"><div class="history-item-content">`+
				`<div class="history-title">%s</div><div class="history-time">%s</div></div></div>`,
			class, html.EscapeString(item.ID), item.Title, item.Timestamp)
	}
	return sb.String()
}
