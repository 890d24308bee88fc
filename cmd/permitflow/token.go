package main

import (
	"fmt"
	"time"

	"permit_flow_app_go/logging"
	"permit_flow_app_go/middleware"
	"permit_flow_app_go/models"

	"github.com/spf13/cobra"
)

// newTokenCmd mints bearer tokens for local testing against the shared secret
func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		email   string
		name    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.Environment == "production" {
				logging.Log.Warn("Signing a token with the production secret")
			}
			if !models.IsValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := middleware.IssueActorToken(models.Actor{
				ID:    subject,
				Role:  models.Role(role),
				Email: email,
				Name:  name,
			}, []byte(cfg.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "sub", "", "actor id (required)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleApplicant), "APPLICANT, ADMIN_REVIEWER, TECH_REVIEWER, INSPECTOR or ADMINISTRATOR")
	cmd.Flags().StringVar(&email, "email", "", "actor email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")

	return cmd
}
