package main

import (
	"os"

	"github.com/aliskhannn/chorequest-bot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
