package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/credit-payments/internal/auth"
)

var tokenEmail string

// tokenCmd mints a token the way the identity provider would. Meant for local testing.
var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Issue a development bearer token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		generator := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.AccessTokenDuration)
		token, err := generator.GenerateAccessToken(args[0], tokenEmail)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim to embed")
}
