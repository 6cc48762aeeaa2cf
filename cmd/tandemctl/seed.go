package main

import (
	"fmt"
	"os"

	"github.com/ashureev/tandem/internal/catalog"
	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(root *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert pattern rules and guided exercises",
		Long:  "Upsert pattern rules and guided exercises from a YAML catalog. Without --file the built-in catalog is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var c *catalog.Catalog
			var err error
			if file == "" {
				c, err = catalog.Default()
			} else {
				f, openErr := os.Open(file)
				if openErr != nil {
					return fmt.Errorf("open catalog: %w", openErr)
				}
				defer f.Close()
				c, err = catalog.Load(f)
			}
			if err != nil {
				return err
			}

			s, err := openStore(root)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := catalog.Seed(cmd.Context(), s, c)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	return cmd
}
