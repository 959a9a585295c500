package commands

import (
	"context"
	"errors"
	"fmt"
	"kingo-scraper/internal/components/telemetry"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	outDir     string
	dumpHttp   string
	verbose    bool
)

var otelShutdown func(context.Context) error

var rootCmd = &cobra.Command{
	Use:   "kingo-cli",
	Short: "kingo-cli logs into a Kingo JW portal and captures its course schedules.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		otel, err := telemetry.SetupFromEnv(cmd.Context(), "kingo-cli")
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("telemetry.json5 not found, tracing is disabled")
			return
		}
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
			return
		}
		otelShutdown = otel.Shutdown
		telemetry.InstrumentPerfStats(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if otelShutdown == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := otelShutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config.json5", "The config file to read credentials and site overrides from.")
	flags.StringVar(&dbPath, "db", "kingo.db", "The sqlite database capture runs are recorded to.")
	flags.StringVar(&outDir, "out", "out", "The directory captured pages are written to.")
	flags.StringVar(&dumpHttp, "dump-http", "", "When set, every request/response pair is written into this directory.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enables debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
