package commands

import (
	"fmt"
	"kingo-scraper/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(subjectsCmd)
}

var subjectsCmd = &cobra.Command{
	Use:   "subjects <term>",
	Short: "Lists the subjects of a term, the term can be given as a code or a label.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openClient(ctx, false)
		defer e.Close()

		ensureSession(ctx, e.client)
		term := resolveTerm(ctx, e.client, args[0])

		subjects, err := e.client.DumpCourseList(ctx, term)
		if err != nil {
			serviceutil.Fatal("failed to list subjects", err)
		}
		if subjects == nil {
			serviceutil.Fatal(fmt.Sprintf("the subject list of %s could not be read", term), nil)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Code", "Subject"})
		for _, code := range subjects.Codes() {
			t.AppendRow(table.Row{code, subjects[code]})
		}
		t.AppendFooter(table.Row{"Total", len(subjects)})
		t.Render()
	},
}
