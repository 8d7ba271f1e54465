package main

import (
	"os"

	"dissent/cmd/dissent/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
