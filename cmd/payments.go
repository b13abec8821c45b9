package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "One-shot payment maintenance",
}

var repairPaymentsCmd = &cobra.Command{
	Use:   "repair",
	Short: "Issue missing tickets for Completed payments",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := initializeDependencies(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close(context.Background())

		repaired, err := deps.Sweeper.RepairGrants(cmd.Context())
		fmt.Fprintf(os.Stdout, "repaired %d access grants\n", repaired)
		return err
	},
}

var expirePaymentsCmd = &cobra.Command{
	Use:   "expire",
	Short: "Resolve Pending payments that never received a callback",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := initializeDependencies(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close(context.Background())

		report, err := deps.Sweeper.ResolveStale(cmd.Context())
		fmt.Fprintf(os.Stdout, "completed=%d failed=%d expired=%d still_pending=%d\n",
			report.Completed, report.Failed, report.Expired, report.StillPending)
		return err
	},
}

func init() {
	paymentsCmd.AddCommand(repairPaymentsCmd)
	paymentsCmd.AddCommand(expirePaymentsCmd)

	rootCmd.AddCommand(paymentsCmd)
}
