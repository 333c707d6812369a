package main

import (
	"context"
	"fmt"

	"github.com/Ksenialiashchuk/test-portal/internal/role"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	newUsername string
	newEmail    string
	newPassword string
	newRole     string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user holding a global role",
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&newUsername, "username", "", "username (required)")
	userCreateCmd.Flags().StringVar(&newEmail, "email", "", "email address (required)")
	userCreateCmd.Flags().StringVar(&newPassword, "password", "", "password (required)")
	userCreateCmd.Flags().StringVar(&newRole, "role", role.Admin, "global role name")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := openPostgres(ctx, "user create")
	if err != nil {
		return err
	}
	defer s.Close()

	svc := user.NewService(s.users, s.roles)
	u, err := svc.Create(ctx, user.CreateUserInput{
		Username: newUsername,
		Email:    newEmail,
		Password: newPassword,
	}, newRole)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	fmt.Printf("Created user %s (id %d) with role %s\n", u.Username, u.ID, u.RoleName())
	return nil
}
