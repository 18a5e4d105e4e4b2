package cmd

import (
	"github.com/spf13/cobra"
)

// appCmd represents the app command
var appCmd = &cobra.Command{
	Use:   "app",
	Short: "used to run the homeroom service",
	Long: `The homeroom service is a json server which syncs calendars on request
and on a schedule (this command is not ran directly)`,
}

func init() {
	rootCmd.AddCommand(appCmd)
}
