package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/cchalm/shopchat/internal/chat"
)

//go:embed conversation.md.tmpl
var conversationTemplate string

var markdownTemplate = template.Must(template.New("conversation").Funcs(template.FuncMap{
	"splitLines": func(text string) []string {
		return strings.Split(text, "\n")
	},
}).Parse(conversationTemplate))

type markdownMessage struct {
	Role string
	Text string
}

type markdownData struct {
	Title    string
	Updated  string
	Messages []markdownMessage
}

// Markdown renders a stored conversation as a markdown transcript. Text is emitted as written; markdown has no
// escaping the transcript relies on.
func Markdown(conv chat.Conversation, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.Local
	}
	data := markdownData{
		Title:   conv.Title,
		Updated: conv.UpdatedAt().In(loc).Format("2006-01-02 15:04 MST"),
	}
	for _, m := range conv.Messages {
		data.Messages = append(data.Messages, markdownMessage{Role: string(m.Role), Text: m.Text})
	}

	var buf bytes.Buffer
	if err := markdownTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render conversation markdown: %w", err)
	}
	return buf.String(), nil
}
