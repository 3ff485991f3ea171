package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version of mculink.
const Version = "0.2.0"

var verbose bool

var rootCmd = &cobra.Command{
	Use:     "mculink",
	Short:   "Connect to and flash a USB-attached microcontroller board",
	Version: Version,
	Long: `mculink manages the connection to a single DAPLink-attached
microcontroller board: listing candidate devices, flashing firmware
images (full or partial), and monitoring the board's serial output.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
