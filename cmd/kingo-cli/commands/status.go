package commands

import (
	"fmt"
	"kingo-scraper/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var statusLogin bool

func init() {
	statusCmd.Flags().BoolVar(&statusLogin, "login", false, "Logs in when the session is expired.")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Checks whether a fresh session is logged in, logging in when --login is given.",
	Run: func(cmd *cobra.Command, args []string) {
		e := openClient(cmd.Context(), false)
		defer e.Close()

		expired, err := e.client.IsLoginExpired(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to reach the portal", err)
		}
		if !expired {
			fmt.Println("session: logged in")
			return
		}
		fmt.Println("session: expired")

		if !statusLogin {
			return
		}
		ok, err := e.client.InitializeSession(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to reach the portal", err)
		}
		fmt.Printf("login accepted: %v\n", ok)
	},
}
