package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/postgres"
	"github.com/northstarhq/api/pkg/logger"
)

const commandTimeout = 30 * time.Second

func userService() (*app.UserService, func()) {
	db := mustDB()
	svc := app.NewUserService(postgres.NewUserRepository(db), cliLogger())
	return svc, func() { db.Close() }
}

func cliLogger() *logger.Logger {
	if flagVerbose {
		return logger.New(logger.Config{Level: "debug", Format: "text"})
	}
	return logger.NewNop()
}

var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin EMAIL",
	Short: "Grant the platform-wide admin role to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB := userService()
		defer closeDB()

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		u, err := svc.GrantSystemAdmin(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Granted system admin to %s (%s)\n", u.Email(), u.ID().String())
		return nil
	},
}

var revokeAdminCmd = &cobra.Command{
	Use:   "revoke-admin EMAIL",
	Short: "Remove the platform-wide admin role from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB := userService()
		defer closeDB()

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		u, err := svc.RevokeSystemAdmin(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Revoked system admin from %s (%s)\n", u.Email(), u.ID().String())
		return nil
	},
}

var suspendUserCmd = &cobra.Command{
	Use:   "suspend-user EMAIL",
	Short: "Suspend a user account across all workspaces",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB := userService()
		defer closeDB()

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		u, err := svc.GetByEmail(ctx, args[0])
		if err != nil {
			return err
		}
		if _, err := svc.SuspendUser(ctx, u.ID()); err != nil {
			return err
		}

		fmt.Printf("Suspended %s (%s)\n", u.Email(), u.ID().String())
		return nil
	},
}

var activateUserCmd = &cobra.Command{
	Use:   "activate-user EMAIL",
	Short: "Reactivate a suspended user account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB := userService()
		defer closeDB()

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		u, err := svc.GetByEmail(ctx, args[0])
		if err != nil {
			return err
		}
		if _, err := svc.ActivateUser(ctx, u.ID()); err != nil {
			return err
		}

		fmt.Printf("Activated %s (%s)\n", u.Email(), u.ID().String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(grantAdminCmd, revokeAdminCmd, suspendUserCmd, activateUserCmd)
}
