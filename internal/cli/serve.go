package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/michelgermain/netsuite-mcp/internal/config"
	"github.com/michelgermain/netsuite-mcp/tools"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Example: `  # Serve over stdio (for MCP clients that spawn the process)
  netsuite-mcp serve

  # Serve over streamable HTTP
  netsuite-mcp serve --transport http --addr :8080`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("transport", "", "Transport to serve on (stdio|http)")
	cmd.Flags().String("addr", "", "Listen address for the http transport")
	return cmd
}

// newMCPServer builds the MCP server with every tool registered.
func newMCPServer(a *app) (*server.MCPServer, func() error, error) {
	db, err := a.openHistory()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return nil }
	if db != nil {
		closeFn = db.Close
	}

	s := server.NewMCPServer(
		"netsuite",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	tools.RegisterTools(s, a.newService(db))
	return s, closeFn, nil
}

func (a *app) serve(ctx context.Context) error {
	s, closeFn, err := newMCPServer(a)
	if err != nil {
		return err
	}
	defer closeFn()

	if a.cfg.NetSuite.Token == "" {
		a.logger.Warn("no NetSuite token configured; tool calls will fail until NETSUITE_TOKEN is set")
	}

	switch a.cfg.Server.Transport {
	case config.TransportHTTP:
		return serveHTTP(ctx, a.cfg.Server.Addr, s, a.logger)
	default:
		a.logger.Info("serving MCP over stdio")
		return server.ServeStdio(s)
	}
}

// newRouter mounts the streamable HTTP transport at /mcp.
func newRouter(s *server.MCPServer) http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/mcp", server.NewStreamableHTTPServer(s))
	return r
}

// serveHTTP blocks until ctx is cancelled, then shuts the listener down.
func serveHTTP(ctx context.Context, addr string, s *server.MCPServer, logger *slog.Logger) error {
	logger.Info("serving MCP over http", "addr", addr, "endpoint", "/mcp")

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: newRouter(s),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Debug("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
