package cmd

import (
	"fmt"
	"html"
	"io"

	"github.com/cchalm/shopchat/internal/render"
)

// terminal binds the render views to plain-text output. View text arrives escaped for markup, so it is unescaped
// before printing.
type terminal struct {
	out io.Writer
}

var entryPrefix = map[render.Class]string{
	render.ClassUser:   "you> ",
	render.ClassModel:  "bot> ",
	render.ClassError:  "!!! ",
	render.ClassLoader: "",
}

func (t terminal) entry(e render.Entry) {
	text := html.UnescapeString(e.Text)
	if e.Class == render.ClassLoader {
		text = "..."
	}
	fmt.Fprintf(t.out, "%s%s\n", entryPrefix[e.Class], text)
}

func (t terminal) transcript(view render.TranscriptView) {
	for _, e := range view.Entries {
		t.entry(e)
	}
}

func (t terminal) history(view render.HistoryView) {
	if view.Empty {
		fmt.Fprintln(t.out, render.NoHistory)
		return
	}
	for i, item := range view.Items {
		marker := " "
		if item.Active {
			marker = "*"
		}
		fmt.Fprintf(t.out, "%s %d. %s  (%s)  %s\n", marker, i+1, html.UnescapeString(item.Title), item.Timestamp, item.ID)
	}
}

func (t terminal) notice(format string, args ...any) {
	fmt.Fprintf(t.out, format+"\n", args...)
}
