package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Credit ledger administration",
}

// grant is for support corrections; purchases always go through order completion.
var grantCreditsCmd = &cobra.Command{
	Use:   "grant [user-id] [amount]",
	Short: "Add credits to a user's balance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || amount <= 0 {
			return fmt.Errorf("amount must be a positive integer, got %q", args[1])
		}

		deps, err := initializeDependencies(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize dependencies: %w", err)
		}
		defer deps.Close(cmd.Context())

		if err := deps.Credits.Add(cmd.Context(), args[0], amount); err != nil {
			return err
		}

		balance, err := deps.Credits.Balance(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s now has %d credits\n", args[0], balance)
		return nil
	},
}

func init() {
	creditsCmd.AddCommand(grantCreditsCmd)
}
