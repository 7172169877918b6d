package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"safepass-compliance/internal/domain"
)

// NewOverdueCmd marks drivers without a record for a week as OVERDUE.
func NewOverdueCmd(configPath *string) *cobra.Command {
	var week, year int
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "File OVERDUE records for drivers who skipped a week (defaults to last week)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			c, err := buildComponents(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer c.Close()

			target := c.ledger.CurrentWeek().Previous()
			if week != 0 || year != 0 {
				target = domain.ISOWeek{Week: week, Year: year}
			}
			marked, err := c.ledger.MarkOverdue(cmd.Context(), target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d drivers marked overdue\n", target, marked)
			return nil
		},
	}
	cmd.Flags().IntVar(&week, "week", 0, "ISO week number")
	cmd.Flags().IntVar(&year, "year", 0, "ISO week-numbering year")
	return cmd
}
