package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"goreldb/internal/catalog"
	"goreldb/internal/config"
	"goreldb/internal/executor"
	"goreldb/internal/frontend"
	"goreldb/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server and block until signaled to stop",
	Long: `Start the server and block until signaled to stop.

No PostgreSQL-style wire protocol is implemented in this version: serve
opens the catalog and WAL, replays any unclean-shutdown entries, and
then idles. Use "goreldb repl" to actually run statements against it.`,
	RunE: runServe,
}

// newEngine opens the catalog and WAL for cfg against the real
// filesystem. The REPL uses the same helper, so both entry points share
// identical startup/replay behavior.
func newEngine(cfg config.Config) (*executor.Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.WALDir, 0o755); err != nil {
		return nil, err
	}
	return executor.NewEngine(catalog.NewOSFS(), cfg.DataDir, cfg.WALDir)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	logger := log.WithComponent("server")
	logger.Info().Str("data_dir", cfg.DataDir).Str("wal_dir", cfg.WALDir).Msg("engine started")

	fe := frontend.NewEngine(executor.NewSession(eng), 64)
	defer fe.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	return nil
}
