package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "homeroom",
	Short: "homeroom keeps each student's course schedule in a calendar",
	Long: `Homeroom turns the courses of every student of a homeschool family into
recurring calendar events, one calendar per student plus a combined view.
It can sync once from the command line or run as a service which exposes
sync endpoints and resyncs on a schedule`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "homeroom.yaml", "Path to the YAML config file (missing files are ignored)")
	rootCmd.PersistentFlags().String("log-level", "", "Overrides the configured log level (debug, io, info, warn, error, broken)")
}
