package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"echoflow/internal/history"
	"echoflow/internal/pipeline"

	"github.com/spf13/cobra"
)

func newHistoryCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, show or clear archived conversations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List archived conversations, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, st, err := g.openState(cmd)
				if err != nil {
					return err
				}
				defer st.Close()
				printHistory(cmd, st.History.List())
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print one archived conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, st, err := g.openState(cmd)
				if err != nil {
					return err
				}
				defer st.Close()
				it, ok := st.History.Select(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", pipeline.ErrNotFound, args[0])
				}
				printItem(cmd, it)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete all archived conversations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, st, err := g.openState(cmd)
				if err != nil {
					return err
				}
				defer st.Close()
				n := st.History.Len()
				if err := st.History.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d conversations\n", successStyle.Render("cleared"), n)
				return nil
			},
		},
	)
	return cmd
}

func preview(it history.Item, width int) string {
	conv := it.Conversation()
	if len(conv) == 0 {
		return ""
	}
	s := strings.Join(strings.Fields(conv[0].Content), " ")
	r := []rune(s)
	if len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return s
}

func printHistory(cmd *cobra.Command, items []history.Item) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No history yet"))
		return
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d conversations", len(items))))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			idStyle.Render(it.ID),
			dateStyle.Render(it.Time().Format("2006-01-02 15:04")),
			modeStyle.Render(it.Mode.Label()),
			preview(it, 50),
		)
	}
	w.Flush()
}

func printItem(cmd *cobra.Command, it history.Item) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s  %s\n\n",
		headerStyle.Render(it.Mode.Label()),
		dateStyle.Render(it.Time().Format("2006-01-02 15:04:05")),
		idStyle.Render(it.ID),
	)
	for _, m := range it.Conversation() {
		fmt.Fprintln(out, roleStyle.Render(strings.ToUpper(string(m.Role))))
		fmt.Fprintln(out, m.Content)
		fmt.Fprintln(out)
	}
}
