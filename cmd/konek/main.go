package main

import (
	"os"

	"github.com/VibeKonekPilipinas/vibe-konek-core/cmd/konek/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
