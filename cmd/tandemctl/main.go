// tandemctl - operator tool for the tandem insight store
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	_ = godotenv.Load()

	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
