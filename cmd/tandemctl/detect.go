package main

import (
	"fmt"

	"github.com/ashureev/tandem/internal/insight"
	"github.com/spf13/cobra"
)

// NewDetectCommand creates the detect command.
func NewDetectCommand(root *RootOptions) *cobra.Command {
	var coupleID, userID string
	var dryRun, dedup bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run pattern detection for a partner",
		Long:  "Run pattern detection for a partner. With --dry-run only detections are printed; otherwise alerts and recommendations are persisted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if coupleID == "" || userID == "" {
				return fmt.Errorf("--couple and --user are required")
			}

			s, err := openStore(root)
			if err != nil {
				return err
			}
			defer s.Close()

			engine := insight.New(s, insight.Options{AlertDedup: dedup})
			if dryRun {
				detections, err := engine.DetectPatterns(cmd.Context(), coupleID, userID)
				if err != nil {
					return err
				}
				if detections == nil {
					detections = []insight.DetectionResult{}
				}
				return writeJSON(cmd.OutOrStdout(), detections)
			}

			res, err := engine.Run(cmd.Context(), coupleID, userID)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&coupleID, "couple", "", "couple ID")
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print detections without persisting alerts")
	cmd.Flags().BoolVar(&dedup, "dedup", true, "skip alerts that are already active")
	return cmd
}
