// Package cli provides the netsuite-mcp command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michelgermain/netsuite-mcp/internal/catalog"
	"github.com/michelgermain/netsuite-mcp/internal/config"
	"github.com/michelgermain/netsuite-mcp/internal/history"
	"github.com/michelgermain/netsuite-mcp/internal/netsuite"
	"github.com/michelgermain/netsuite-mcp/internal/query"
)

// Version information (set at build time).
var Version = "1.0.0"

type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCmd creates the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "netsuite-mcp",
		Short: "MCP server for querying NetSuite",
		Long: `netsuite-mcp exposes NetSuite records as MCP tools. Each tool accepts the
same query envelope (CountOnly, OrderBy, Filters, Limit, Offset) and compiles
it into a SuiteQL statement or a saved-search request.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./netsuite-mcp.yaml)")
	rootCmd.PersistentFlags().String("account", "", "NetSuite account id")
	rootCmd.PersistentFlags().String("history", "", "Path to the query history database (empty disables history)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")

	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newHistoryCommand(a))
	rootCmd.AddCommand(newToolsCommand())

	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// newLogger writes to w, never stdout: stdout carries the stdio transport.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openHistory opens the configured history database, or returns nil when
// history is disabled.
func (a *app) openHistory() (*history.DB, error) {
	if a.cfg.History.Path == "" {
		return nil, nil
	}
	db, err := history.Open(a.cfg.History.Path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// newService wires the backend client, paging and history into a service.
func (a *app) newService(db *history.DB) *catalog.Service {
	norm := &query.Normalizer{SkipFalsy: a.cfg.Normalize.SkipFalsy, Logger: a.logger}
	pager := &query.Pager{
		Delay:      a.cfg.Paging.Delay,
		MaxPages:   a.cfg.Paging.MaxPages,
		Normalizer: norm,
		Logger:     a.logger,
	}
	client := netsuite.NewClient(a.cfg.Client(), a.logger)
	return catalog.NewService(client, catalog.Options{
		Pager:      pager,
		Normalizer: norm,
		History:    db,
		Logger:     a.logger,
	})
}
