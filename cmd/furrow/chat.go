package main

import (
	"context"
	"os"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/presentation/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Chat keeps one conversation open so follow-up questions see the
recent turns. Type /quit or press esc to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		userID, _ := cmd.Flags().GetString("user")
		facts, _ := cmd.Flags().GetStringToString("fact")
		conversationID, _ := cmd.Flags().GetString("conversation")
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		first := true
		ask := func(ctx context.Context, message string) furrow.Response {
			req := furrow.Request{ConversationID: conversationID, UserID: userID, Message: message}
			if first {
				req.UserFacts = facts
				first = false
			}
			return a.supervisor.Handle(ctx, req)
		}

		render := tui.Plain
		if term.IsTerminal(int(os.Stdout.Fd())) {
			width, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				width = 80
			}
			render = tui.NewRenderer(width)
		}

		tui.PrintBanner(cmd.OutOrStdout(), furrow.Version)
		a.logger.Debug("chat started", "conversation_id", conversationID)

		p := tea.NewProgram(tui.NewChat(cmd.Context(), ask, render),
			tea.WithContext(cmd.Context()),
			tea.WithInput(cmd.InOrStdin()),
			tea.WithOutput(cmd.OutOrStdout()),
		)
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("user", "", "User ID that owns the conversation")
	chatCmd.Flags().String("conversation", "", "Resume an existing conversation ID")
	chatCmd.Flags().StringToString("fact", nil, "User facts, e.g. --fact location=Nashik")
}
