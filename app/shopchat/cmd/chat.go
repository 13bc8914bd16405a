package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cchalm/shopchat/internal/chat"
	"github.com/cchalm/shopchat/internal/relay"
	"github.com/cchalm/shopchat/internal/render"
	"github.com/cchalm/shopchat/internal/repository"
	"github.com/cchalm/shopchat/internal/session"
	"github.com/cchalm/shopchat/internal/transport"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive support chat",
	Long: `Start an interactive chat with the support assistant through the relay server.
Conversations are saved locally; only the five most recent are kept.

Commands:
  /new             start a new conversation
  /history         list saved conversations
  /load <n|id>     switch to a saved conversation
  /delete <n|id>   delete a saved conversation
  /quit            exit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("relay-url", "http://localhost:3000", "Base URL of the relay server")
	chatCmd.Flags().Duration("timeout", session.DefaultRelayTimeout, "Timeout for a single relay request")
	addClientFlags(chatCmd)

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateClient(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := setupContext()

	adapter, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open conversation store: %w", err)
	}
	defer closeStore()

	repo := repository.New(adapter)
	client := relay.NewClient(cfg.RelayURL, &http.Client{
		Transport: transport.WithRateLimiting(http.DefaultTransport).MaxRetries(2).MaxWait(5 * time.Second),
	})
	ctrl := session.New(repo, client, session.WithRelayTimeout(cfg.RelayTimeout))

	r := &repl{
		ctrl: ctrl,
		repo: repo,
		term: terminal{out: cmd.OutOrStdout()},
		loc:  time.Local,
	}
	return r.run(ctx, os.Stdin)
}

// repl drives a session controller from line-oriented input
type repl struct {
	ctrl *session.Controller
	repo *repository.Repository
	term terminal
	loc  *time.Location
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	r.term.transcript(render.Transcript(r.ctrl.Snapshot()))

	done := make(chan struct{})
	defer close(done)
	lines, scanErr := scanLines(in, done)

	for {
		fmt.Fprint(r.term.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if r.handle(ctx, strings.TrimSpace(line)) {
				return nil
			}
		}
	}
}

// scanLines reads lines from in until EOF or until done is closed. The lines channel is closed when reading stops;
// a scan error, if any, is delivered on the error channel first.
func scanLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()
	return lines, scanErr
}

// handle processes one input line and reports whether the loop should exit
func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.send(ctx, line)
		return false
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/quit", "/exit":
		return true
	case "/new":
		r.report(r.ctrl.StartNew(ctx))
		r.term.transcript(render.Transcript(r.ctrl.Snapshot()))
	case "/history":
		r.showHistory(ctx)
	case "/load":
		if arg == "" {
			r.term.notice("usage: /load <n|id>")
			return false
		}
		r.report(r.ctrl.Load(ctx, r.resolve(ctx, arg)))
		r.term.transcript(render.Transcript(r.ctrl.Snapshot()))
	case "/delete":
		if arg == "" {
			r.term.notice("usage: /delete <n|id>")
			return false
		}
		r.report(r.ctrl.DeleteConversation(ctx, r.resolve(ctx, arg)))
		r.showHistory(ctx)
	default:
		r.term.notice("unknown command %s (try /new, /history, /load, /delete, /quit)", command)
	}
	return false
}

func (r *repl) send(ctx context.Context, text string) {
	r.term.entry(render.Entry{Class: render.ClassLoader})
	err := r.ctrl.SendUserMessage(ctx, text)
	if err != nil && !errors.Is(err, session.ErrRelay) {
		r.report(err)
		return
	}

	// Either the reply or the failure notice
	entries := render.Transcript(r.ctrl.Snapshot()).Entries
	if len(entries) > 0 {
		r.term.entry(entries[len(entries)-1])
	}
}

func (r *repl) showHistory(ctx context.Context) {
	r.term.history(render.History(r.ctrl.Snapshot(), r.repo.List(ctx), r.loc))
}

// resolve maps a 1-based position in the history list to a conversation id. Anything else is taken as an id.
func (r *repl) resolve(ctx context.Context, arg string) string {
	return resolveConversation(r.repo.List(ctx), arg)
}

func (r *repl) report(err error) {
	if err != nil {
		r.term.notice("error: %v", err)
	}
}

func resolveConversation(convs []chat.Conversation, arg string) string {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(convs) {
		return convs[n-1].ID
	}
	return arg
}
