package cli

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/michelgermain/netsuite-mcp/internal/catalog"
)

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the entity tools and their columns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderTools(cmd.OutOrStdout(), catalog.Entities())
			return nil
		},
	}
}

func renderTools(w io.Writer, entities []catalog.Entity) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Tool", "Backend", "Columns"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 80}})
	for _, e := range entities {
		t.AppendRow(table.Row{e.Name, e.Kind.String(), strings.Join(e.Schema.Names(), ", ")})
	}
	t.Render()
}
