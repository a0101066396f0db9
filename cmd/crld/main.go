package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cuemby/crld/internal/config"
	"github.com/cuemby/crld/internal/configstore"
	"github.com/cuemby/crld/internal/fsm"
	"github.com/cuemby/crld/internal/health"
	"github.com/cuemby/crld/internal/httpapi"
	"github.com/cuemby/crld/internal/log"
	"github.com/cuemby/crld/internal/metrics"
	"github.com/cuemby/crld/internal/orchestrator"
	"github.com/cuemby/crld/internal/worldops"
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
	Use:   "crld",
	Short: "crld - world lifecycle daemon",
	Long: `crld is the world lifecycle daemon: it owns the per-(event,user)
FSM that creates, starts, stops, and health-checks CTF-event "worlds"
running as orchestrator stacks.`,
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("crld version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	rootCmd.PersistentFlags().String("listen-addr", config.EnvString("CRLD_LISTEN_ADDR", "0.0.0.0"), "HTTP listen address")
	rootCmd.PersistentFlags().Int("listen-port", config.EnvInt("CRLD_LISTEN_PORT", 8080), "HTTP listen port")
	rootCmd.PersistentFlags().String("config-root", config.EnvString("CRLD_CONFIG_ROOT", "/opt/crl"), "Root of the Events/ configuration hierarchy")
	rootCmd.PersistentFlags().String("log-level", config.EnvString("CRLD_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", config.EnvBool("CRLD_LOG_JSON", false), "Output logs in JSON format")
}

func run(cmd *cobra.Command, args []string) error {
	var cfg config.WLD
	cfg.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
	cfg.ListenPort, _ = cmd.Flags().GetInt("listen-port")
	cfg.ConfigRoot, _ = cmd.Flags().GetString("config-root")
	cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	cfg.LogJSON, _ = cmd.Flags().GetBool("log-json")

	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
	logger := log.WithComponent("main")

	store := configstore.New(cfg.ConfigRoot)
	ops := worldops.New(store)
	adapter := orchestrator.New()
	reconc := health.New(adapter, store)
	fsmActor := fsm.New(store, ops, reconc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go fsmActor.Run(ctx)

	collector := metrics.NewCollector(15*time.Second, fsmActor.StateCounts, fsmActor.QueueDepths)
	collector.Start()
	defer collector.Stop()

	startupReconcile(store, fsmActor, logger)

	server := httpapi.New(fsmActor, store, reconc, adapter)
	addr := fmt.Sprintf("%s:%d", cfg.ListenAddr, cfg.ListenPort)
	httpServer := &http.Server{Addr: addr, Handler: server}

	logger.Info().Str("addr", addr).Str("config_root", cfg.ConfigRoot).Msg("crld listening")

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
	return nil
}

// startupReconcile fans out an integrity check over every world found on
// disk, mirroring crld.py's init_fsm asyncio.gather. The create/stop
// workers and the FSM actor are already running (started above) before
// this is called, and well before the HTTP listener binds below.
func startupReconcile(store *configstore.Store, fsmActor *fsm.FSM, logger zerolog.Logger) {
	events, err := store.ListEvents()
	if err != nil {
		logger.Warn().Err(err).Msg("could not list events for startup reconciliation")
		return
	}

	var wg sync.WaitGroup
	for _, event := range events {
		worlds, err := store.ListWorlds(event)
		if err != nil {
			logger.Warn().Err(err).Str("event", event).Msg("could not list worlds for startup reconciliation")
			continue
		}
		for _, user := range worlds {
			wg.Add(1)
			go func(event, user string) {
				defer wg.Done()
				fsmActor.CheckIntegrity(fsm.WorldKey{Event: event, User: user})
			}(event, user)
		}
	}
	wg.Wait()
	logger.Info().Msg("startup reconciliation complete")
}
