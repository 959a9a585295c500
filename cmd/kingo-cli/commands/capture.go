package commands

import (
	"context"
	"errors"
	"fmt"
	"kingo-scraper/internal/scrapers/kingo"
	"kingo-scraper/pkg/serviceutil"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(captureSubjectCmd)
}

var captureCmd = &cobra.Command{
	Use:   "capture <term> [--out <dir>] [--db <path>]",
	Short: "Captures the schedule page of every subject of a term into <out>/<term>.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openClient(ctx, true)
		defer e.Close()

		ensureSession(ctx, e.client)
		term := resolveTerm(ctx, e.client, args[0])
		dir := filepath.Join(outDir, term)

		slog.Info("capturing term", "term", term, "out", dir, "delay", e.client.Delay())
		start := time.Now()

		count, err := e.client.GetTermSubjectToFiles(ctx, term, dir)
		if errors.Is(err, context.Canceled) {
			slog.Warn("capture interrupted", "captured", count)
			return
		}
		if err != nil {
			serviceutil.Fatal("capture failed", err)
		}
		if count < 0 {
			serviceutil.Fatal("failed to login, check the credentials in the config", nil)
		}

		slog.Info("capture finished", "term", term, "subjects", count, "seconds", time.Since(start).Seconds())
	},
}

var captureSubjectCmd = &cobra.Command{
	Use:   "capture-subject <term> <subject> [--out <dir>]",
	Short: "Captures the schedule page of a single subject into <out>/<term>.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openClient(ctx, false)
		defer e.Close()

		ensureSession(ctx, e.client)
		term := resolveTerm(ctx, e.client, args[0])
		dir := filepath.Join(outDir, term)

		err := e.client.CaptureSingleSubject(ctx, term, args[1], dir)
		if err != nil {
			serviceutil.Fatal("capture failed", err)
		}
		fmt.Println(filepath.Join(dir, kingo.SubjectFileName(args[1])))
	},
}
