package main

import (
	"os"

	"github.com/rcliao/discharge-care/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
