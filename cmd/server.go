package cmd

import (
	"ReadTune/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动ReadTune服务器",
	Long:  `启动ReadTune阅读旅程系统的HTTP服务器，提供API服务与播放条WebSocket`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
