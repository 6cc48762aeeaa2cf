package main

import (
	"fmt"

	"github.com/ashureev/tandem/internal/insight"
	"github.com/spf13/cobra"
)

// NewAlertsCommand creates the alerts command.
func NewAlertsCommand(root *RootOptions) *cobra.Command {
	var coupleID string

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List a couple's active alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if coupleID == "" {
				return fmt.Errorf("--couple is required")
			}

			s, err := openStore(root)
			if err != nil {
				return err
			}
			defer s.Close()

			engine := insight.New(s, insight.Options{})
			return writeJSON(cmd.OutOrStdout(), engine.GetActiveAlerts(cmd.Context(), coupleID))
		},
	}

	cmd.Flags().StringVar(&coupleID, "couple", "", "couple ID")
	return cmd
}
