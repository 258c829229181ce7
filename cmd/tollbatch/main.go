// Command tollbatch prices a bulk trip file from the command line using the
// same pipeline as the server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tollbatch/internal/config"
	"github.com/JonMunkholm/tollbatch/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tollbatch",
	Short: "Validate and price bulk toll trip files",
	Long: `tollbatch validates a CSV of trips and prices every row against the toll API.

The input needs the columns origin, destination, journey_type and way_points.
Without LEPTON_API_KEY the built-in sample quote is used for every row.

Examples:
  tollbatch template --out .            # Write an empty input file
  tollbatch validate trips.csv          # Check a file without pricing it
  tollbatch run trips.csv --out ./out   # Price every row`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c

		level := cfg.Logging.Level
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		// stdout carries progress, logs go to stderr
		logging.SetupWriter(os.Stderr, level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(templateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
