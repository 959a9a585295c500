package commands

import (
	"kingo-scraper/pkg/serviceutil"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var termsRecord bool

func init() {
	termsCmd.Flags().BoolVar(&termsRecord, "record", false, "Also stores the listed terms in the database.")
	rootCmd.AddCommand(termsCmd)
}

var termsCmd = &cobra.Command{
	Use:   "terms [--record]",
	Short: "Lists the terms the portal offers.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openClient(ctx, termsRecord)
		defer e.Close()

		ensureSession(ctx, e.client)
		terms, err := e.client.DumpTermList(ctx)
		if err != nil {
			serviceutil.Fatal("failed to list terms", err)
		}

		if termsRecord {
			err = e.manifest.RecordTerms(ctx, terms)
			if err != nil {
				serviceutil.Fatal("failed to record terms", err)
			}
			slog.Info("recorded terms", "count", len(terms))
		}

		t := newTable()
		t.AppendHeader(table.Row{"Code", "Term"})
		for _, code := range terms.Codes() {
			t.AppendRow(table.Row{code, terms[code]})
		}
		t.Render()
	},
}
