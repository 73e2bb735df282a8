package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/michelgermain/netsuite-mcp/internal/history"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		limit int
		tool  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently executed backend queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openHistory()
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("query history is disabled; set --history or NETSUITE_HISTORY_PATH")
			}
			defer db.Close()

			entries, err := db.Recent(cmd.Context(), tool, limit)
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show")
	cmd.Flags().StringVar(&tool, "tool", "", "Only show queries issued by this tool")
	return cmd
}

func renderHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "(0 queries)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Time", "Tool", "Backend", "Rows", "Duration", "Error", "Statement"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, WidthMax: 40},
		{Number: 7, WidthMax: 80},
	})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.CreatedAt.Local().Format(time.DateTime),
			e.Tool,
			e.Backend,
			e.Rows,
			e.Duration.Round(time.Millisecond),
			e.Error,
			e.Statement,
		})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d queries)\n", len(entries))
}
