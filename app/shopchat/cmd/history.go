package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cchalm/shopchat/internal/render"
	"github.com/cchalm/shopchat/internal/repository"
	"github.com/cchalm/shopchat/internal/session"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage saved conversations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeStore, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		term := terminal{out: cmd.OutOrStdout()}
		term.history(render.History(session.Snapshot{}, repo.List(cmd.Context()), time.Local))
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <n|id>",
	Short: "Print a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeStore, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		id := resolveConversation(repo.List(cmd.Context()), args[0])
		conv, ok := repo.FindByID(cmd.Context(), id)
		if !ok {
			return fmt.Errorf("no conversation %q", args[0])
		}

		if asMarkdown, _ := cmd.Flags().GetBool("markdown"); asMarkdown {
			md, err := render.Markdown(conv, time.Local)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}

		term := terminal{out: cmd.OutOrStdout()}
		term.notice("%s", conv.Title)
		term.transcript(render.Transcript(session.Snapshot{ActiveID: conv.ID, Messages: conv.Messages}))
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <n|id>",
	Short: "Delete a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeStore, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		id := resolveConversation(repo.List(cmd.Context()), args[0])
		if _, ok := repo.FindByID(cmd.Context(), id); !ok {
			return fmt.Errorf("no conversation %q", args[0])
		}
		repo.Delete(cmd.Context(), id)
		terminal{out: cmd.OutOrStdout()}.notice("Deleted %s", id)
		return nil
	},
}

func openRepository(cmd *cobra.Command) (*repository.Repository, func() error, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	adapter, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open conversation store: %w", err)
	}
	return repository.New(adapter), closeStore, nil
}

func init() {
	addClientFlags(historyListCmd)
	addClientFlags(historyShowCmd)
	historyShowCmd.Flags().Bool("markdown", false, "Print the conversation as markdown")
	addClientFlags(historyDeleteCmd)

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}
