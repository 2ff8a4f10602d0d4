package cmd

import (
	"fmt"
	"os"

	"ReadTune/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "readtune",
	Short: "ReadTune is a reading journal with generated background music.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
