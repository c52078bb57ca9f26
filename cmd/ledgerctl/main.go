package main

import (
	"os"

	"github.com/ledgerbook/ledgerbook/cmd/ledgerctl/cli"
)

func main() {
	if err := cli.NewRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
