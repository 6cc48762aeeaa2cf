package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ashureev/tandem/internal/store"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath  string
	Timeout time.Duration
	Verbose bool
}

// NewRootCommand creates the root command for tandemctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "tandemctl",
		Short:         "Inspect and seed the tandem insight store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.DBPath == "" {
				return fmt.Errorf("--db cannot be empty")
			}
			if opts.Verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
			return nil
		},
	}

	defaultDB := os.Getenv("DB_PATH")
	if defaultDB == "" {
		defaultDB = "./data/tandem.db"
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", defaultDB, "path to the SQLite database")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 3*time.Second, "per-call store timeout")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewDetectCommand(opts))
	cmd.AddCommand(NewAlertsCommand(opts))

	return cmd
}

func openStore(opts *RootOptions) (*store.SQLiteStore, error) {
	storeOpts := store.DefaultOptions()
	storeOpts.Timeout = opts.Timeout
	s, err := store.NewSQLite(opts.DBPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
