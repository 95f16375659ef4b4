package main

import (
	"os"

	"github.com/arborapp/arbor-core/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
