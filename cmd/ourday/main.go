package main

import (
	"os"

	"github.com/ourday-app/ourday/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
