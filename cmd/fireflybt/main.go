package main

import (
	"os"

	"github.com/fireflybt/fireflybt/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
