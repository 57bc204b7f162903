package main

import (
	"os"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
