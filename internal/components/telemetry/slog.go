package telemetry

import (
	"fmt"
	"log/slog"
	"os"
)

// InitSlog makes a text handler on stderr the default logger, `verbose`
// enables debug records.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// SlogAPI reports through the default slog logger.
type SlogAPI struct{}

// attrs turns positional params into params.0, params.1, ... pairs.
func attrs(leading []any, params []any) []any {
	out := make([]any, 0, len(leading)+len(params)*2)
	out = append(out, leading...)
	for i, p := range params {
		out = append(out, fmt.Sprintf("params.%d", i), p)
	}
	return out
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", attrs([]any{"id", id}, params)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", attrs([]any{"id", id}, params)...)
}

func (SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, attrs(nil, params)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}
