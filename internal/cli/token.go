package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	transport "safepass-compliance/internal/transport/http"
)

// NewTokenCmd issues a bearer token for local testing against the API.
func NewTokenCmd(configPath *string) *cobra.Command {
	var driverID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a driver bearer token signed with auth.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if driverID == "" {
				return fmt.Errorf("--driver is required")
			}
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			auth := transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
			token, err := auth.IssueToken(driverID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&driverID, "driver", "", "driver id to put in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
