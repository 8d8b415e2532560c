package main

import (
	"os"

	"github.com/siftlabs/sift/cmd/sift/commands"
)

// main is the entry point for the sift CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
