package main

import (
	"os"

	"github.com/conneroisu/trunkgo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
