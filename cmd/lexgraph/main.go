package main

import (
	"os"

	"github.com/OFFIS-RIT/lexgraph/internal/cli"
	"github.com/OFFIS-RIT/lexgraph/internal/util"
)

func main() {
	util.LoadEnv()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
