package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"echoflow/internal/app"
	"echoflow/internal/chat"

	"github.com/spf13/cobra"
)

func newTranscribeCmd(g *globals) *cobra.Command {
	var (
		mode string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe an existing audio file",
		Long: `Upload an audio file for transcription and write the text to <name>.txt.
With --mode the transcript is rewritten under that mode and the conversation
is saved to history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.FileRequest{Input: args[0], Output: out}
			if mode != "" {
				m, err := chat.ParseMode(mode)
				if err != nil {
					return err
				}
				req.Mode = m
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			logger := g.logger(&cfg, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			res, err := app.TranscribeFile(ctx, cfg, logger, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("wrote"), res.Output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "rewrite the transcript (clean, meeting, idea, ask, custom)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <name>.txt)")
	return cmd
}
