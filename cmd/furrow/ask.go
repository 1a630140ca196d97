package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/presentation/tui"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Example: `  furrow ask "Will it rain tomorrow and what is the price of maize?"
  furrow ask --image leaf-42.jpg "What is wrong with my tomato plant?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		userID, _ := cmd.Flags().GetString("user")
		image, _ := cmd.Flags().GetString("image")
		facts, _ := cmd.Flags().GetStringToString("fact")
		probe, _ := cmd.Flags().GetBool("probe")
		raw, _ := cmd.Flags().GetBool("raw")

		ctx := cmd.Context()
		if probe {
			a.supervisor.RefreshHealth(ctx)
		}

		req := furrow.Request{
			UserID:    userID,
			Message:   strings.Join(args, " "),
			UserFacts: facts,
		}
		if image != "" {
			req.Attachment = &domain.MediaRef{Handle: image}
		}

		resp := a.supervisor.Handle(ctx, req)
		if !resp.Success && resp.Response == "" {
			return fmt.Errorf("%s (%s)", resp.Error, resp.ErrorKind)
		}

		out := cmd.OutOrStdout()
		render := tui.Plain
		if f, ok := out.(*os.File); ok && !raw && term.IsTerminal(int(f.Fd())) {
			width, _, err := term.GetSize(int(f.Fd()))
			if err != nil {
				width = 80
			}
			render = tui.NewRenderer(width)
		}
		text, err := render(resp.Response)
		if err != nil {
			text, _ = tui.Plain(resp.Response)
		}
		fmt.Fprint(out, text)

		if !resp.Success {
			fmt.Fprintf(cmd.ErrOrStderr(), "partial answer: %s\n", resp.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().String("user", "", "User ID that owns the conversation")
	askCmd.Flags().String("image", "", "Attach a media handle (e.g. an uploaded photo id)")
	askCmd.Flags().StringToString("fact", nil, "User facts, e.g. --fact location=Nashik")
	askCmd.Flags().Bool("probe", false, "Probe worker health before asking")
	askCmd.Flags().Bool("raw", false, "Print markdown without rendering")
}
