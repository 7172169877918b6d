package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVerifyCmd checks the signatures of a driver's compliance records.
func NewVerifyCmd(configPath *string) *cobra.Command {
	var driverID string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the signatures of a driver's compliance records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if driverID == "" {
				return fmt.Errorf("--driver is required")
			}
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			c, err := buildComponents(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer c.Close()

			records, report, err := c.ledger.VerifyDriver(cmd.Context(), driverID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range records {
				score := "-"
				if r.Score != nil {
					score = fmt.Sprint(*r.Score)
				}
				fmt.Fprintf(out, "%s\t%d-W%02d\t%s\t%s\n", r.DriverID, r.Year, r.WeekNumber, r.Status, score)
			}
			if err := report.Err(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d records verified\n", report.Checked)
			return nil
		},
	}
	cmd.Flags().StringVar(&driverID, "driver", "", "driver id")
	return cmd
}
