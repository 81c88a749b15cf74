package main

import (
	"os"

	"github.com/vity-loop/vity-loop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
