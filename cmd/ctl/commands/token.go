package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"linkedin-insights/internal/auth"
)

var tokenFlags struct {
	subject string
	ttl     time.Duration
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.subject, "subject", "insightsctl", "who the token is issued to")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issues an admin bearer token signed with ADMIN_JWT_SECRET.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := configFrom(cmd).AdminJWTSecret
		if secret == "" {
			return errors.New("ADMIN_JWT_SECRET is not set")
		}

		token, expires, err := auth.IssueAdminToken(secret, tokenFlags.subject, tokenFlags.ttl)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Local().Format(time.RFC1123))
		return nil
	},
}
