package main

import (
	"os"

	"github.com/rohankumardubey/DALI/cmd/dali/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
