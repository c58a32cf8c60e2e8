package main

import (
	"os"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
