package main

import (
	"os"

	"github.com/rcliao/hole-sync/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
