package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cuemby/crld/internal/config"
	"github.com/cuemby/crld/internal/log"
	"github.com/cuemby/crld/internal/portalloc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "portd",
	Short: "portd - port allocation service",
	Long: `portd hands out free ephemeral TCP ports over a unix socket, so
that WLD's world-creation path never has to pick a gateway port itself.`,
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("portd version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	rootCmd.PersistentFlags().String("socket-path", config.EnvString("PORTD_SOCKET_PATH", "/var/run/portd/portd.sock"), "Unix socket path to listen on")
	rootCmd.PersistentFlags().String("log-level", config.EnvString("PORTD_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", config.EnvBool("PORTD_LOG_JSON", false), "Output logs in JSON format")
}

func run(cmd *cobra.Command, args []string) error {
	var cfg config.PAS
	cfg.SocketPath, _ = cmd.Flags().GetString("socket-path")
	cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	cfg.LogJSON, _ = cmd.Flags().GetBool("log-json")

	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
	logger := log.WithComponent("portd")

	if err := os.MkdirAll(socketDir(cfg.SocketPath), 0o755); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	_ = os.Remove(cfg.SocketPath) // a stale socket from a previous run must not block bind

	listener, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.SocketPath, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", handleAllocate(logger))
	httpServer := &http.Server{Handler: mux}

	logger.Info().Str("socket", cfg.SocketPath).Msg("portd listening")

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(listener) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
	return nil
}

func socketDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

// handleAllocate parses the repeated `blacklist` query parameter, asks
// internal/portalloc for a free port outside of it, and writes the port
// back as plain text. Grounded on portd.py's handle(): the same
// blacklist-avoidance contract, reimplemented with a kernel-backed bind
// loop instead of Python's socket.bind(("", 0)).
func handleAllocate(logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blacklist := make(map[int]struct{})
		for _, v := range r.URL.Query()["blacklist"] {
			n, err := strconv.Atoi(v)
			if err != nil {
				continue
			}
			blacklist[n] = struct{}{}
		}

		port, err := portalloc.Allocate(blacklist)
		if err != nil {
			logger.Error().Err(err).Msg("port allocation failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprint(w, strconv.Itoa(port))
	}
}
