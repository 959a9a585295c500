package commands

import (
	"fmt"
	"kingo-scraper/pkg/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs into the portal once and prints whether the credentials were accepted.",
	Run: func(cmd *cobra.Command, args []string) {
		e := openClient(cmd.Context(), false)
		defer e.Close()

		result, err := e.client.Login(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to reach the portal", err)
		}
		if !result.Authenticated() {
			fmt.Printf("login %s: %s\n", result.State, result.Reason)
			return
		}
		fmt.Printf("logged in as %s\n", e.cfg.Username)
	},
}
