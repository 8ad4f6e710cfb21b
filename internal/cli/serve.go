package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ngramlm/internal/controller"
	"ngramlm/internal/handler"
	"ngramlm/pkg/mcp"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Train on the stored corpus and serve the HTTP API and MCP tools",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trainer, closeStore, err := openTrainer()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := train(ctx, trainer); err != nil {
		// an empty store still serves; documents can be added and trained over HTTP
		logger.Warn("Starting without a trained model", zap.Error(err))
	}

	var mcpServer *mcp.NGramServer
	if cfg.Server.MCPEnabled {
		mcpServer = mcp.NewNGramServer(trainer, logger)
	}
	router := handler.SetupRouter(controller.NewLMController(trainer, logger), mcpServer, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.Bool("mcp", mcpServer != nil))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
