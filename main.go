package main

import (
	"os"

	"github.com/michelgermain/netsuite-mcp/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
