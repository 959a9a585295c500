package commands

import (
	"fmt"
	"kingo-scraper/internal/components/db"
	"kingo-scraper/pkg/serviceutil"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	runsLimit int64
	runsRun   int64
)

func init() {
	runsCmd.Flags().Int64Var(&runsLimit, "limit", 20, "The amount of recent runs to list.")
	runsCmd.Flags().Int64Var(&runsRun, "run", 0, "Lists the subjects captured by the given run instead.")
	rootCmd.AddCommand(runsCmd)
}

func formatUnix(t int64) string {
	return time.Unix(t, 0).Format(time.DateTime)
}

var runsCmd = &cobra.Command{
	Use:   "runs [--limit <n>] [--run <id>]",
	Short: "Lists the capture runs recorded in the database.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database, err := db.Open(ctx, dbPath)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()
		qry := db.New(database)

		t := newTable()

		if runsRun > 0 {
			subjects, err := qry.GetRunSubjects(ctx, runsRun)
			if err != nil {
				serviceutil.Fatal("failed to read run subjects", err)
			}
			t.AppendHeader(table.Row{"Subject", "Name", "File", "Size", "Captured at"})
			for _, s := range subjects {
				t.AppendRow(table.Row{s.SubjectCode, s.SubjectName, s.FileName, s.Size, formatUnix(s.CapturedAt)})
			}
			t.Render()
			return
		}

		runs, err := qry.GetRuns(ctx, runsLimit)
		if err != nil {
			serviceutil.Fatal("failed to read runs", err)
		}
		t.AppendHeader(table.Row{"Run", "Token", "Term", "Status", "Captured", "Started", "Duration"})
		for _, run := range runs {
			duration := "-"
			if run.FinishedAt.Valid {
				duration = (time.Duration(run.FinishedAt.Int64-run.StartedAt) * time.Second).String()
			}
			t.AppendRow(table.Row{
				run.ID,
				run.Token,
				run.TermCode,
				run.Status,
				fmt.Sprintf("%d/%d", run.Captured, run.Total),
				formatUnix(run.StartedAt),
				duration,
			})
		}
		t.Render()
	},
}
