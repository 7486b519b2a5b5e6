package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"echoflow/internal/app"
	"echoflow/internal/config"
	"echoflow/internal/logging"

	"github.com/spf13/cobra"
)

func newRunCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the recorder, hotkeys and chat window",
		Long: `Start EchoFlow. The chat window takes over the terminal unless --headless
is set; logs then go to <data dir>/echoflow.log.

Other processes can drive the running instance with "echoflow ctl".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			if !cfg.Headless {
				f, err := logging.OpenFile(config.LogPath(&cfg))
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			logger := g.logger(&cfg, w)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := app.Run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("exited", "err", err)
				return err
			}
			return nil
		},
	}
}
