package cmd

import (
	"errors"
	"fmt"
	"time"

	"echoflow/internal/export"
	"echoflow/internal/history"
	"echoflow/internal/pipeline"

	"github.com/spf13/cobra"
)

func newExportCmd(g *globals) *cobra.Command {
	var (
		format string
		id     string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an archived conversation",
		Long: `Export an archived conversation (the newest one unless --id is given) as
Markdown, PDF, YAML or JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := export.New(format)
			if err != nil {
				return err
			}
			_, st, err := g.openState(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var it history.Item
			if id == "" {
				items := st.History.List()
				if len(items) == 0 {
					return errors.New("no history to export")
				}
				it = items[0]
			} else {
				var ok bool
				if it, ok = st.History.Select(id); !ok {
					return fmt.Errorf("%w: %s", pipeline.ErrNotFound, id)
				}
			}

			path, err := export.WriteFile(e, dir, export.Document{
				Mode:     it.Mode,
				Exported: time.Now(),
				Messages: it.Conversation(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("exported"), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format (md, pdf, yaml, json)")
	cmd.Flags().StringVar(&id, "id", "", "history item id (default newest)")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "output directory")
	return cmd
}
