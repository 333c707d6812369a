package main

import (
	"context"
	"fmt"

	"github.com/Ksenialiashchuk/test-portal/internal/bootstrap"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ensure the global roles and their permission grants exist",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := openPostgres(ctx, "seed")
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := bootstrap.Run(ctx, s.roles)
	if err != nil {
		return err
	}

	fmt.Printf("Roles created:       %d %v\n", len(report.RolesCreated), report.RolesCreated)
	fmt.Printf("Permissions granted: %d\n", report.PermissionsGranted)
	return nil
}
