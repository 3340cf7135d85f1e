package main

import (
	"context"
	"fmt"

	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/authutil"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string
)

// storefrontctl ensure-admin
var ensureAdminCmd = &cobra.Command{
	Use:   "ensure-admin",
	Short: "Create an admin account or promote an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := authutil.NormalizeEmail(adminEmail)
		if err != nil {
			return err
		}
		var hash string
		if adminPassword != "" {
			if err := authutil.ValidatePassword(adminPassword); err != nil {
				return err
			}
			if hash, err = authutil.HashPassword(adminPassword); err != nil {
				return err
			}
		}
		return withDB(cmd.Context(), func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			u, created, err := userstore.New(db).EnsureAdmin(ctx, email, adminName, hash)
			if err != nil {
				return err
			}
			logger.Info("admin ready", zap.String("user_id", u.ID.Hex()), zap.Bool("created", created))
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s\n", u.Email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is an admin\n", u.Email)
			}
			return nil
		})
	},
}

func init() {
	ensureAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email address")
	ensureAdminCmd.Flags().StringVar(&adminName, "name", "", "display name for a new account")
	ensureAdminCmd.Flags().StringVar(&adminPassword, "password", "", "password for a new account (blank means Google sign-in only)")
	_ = ensureAdminCmd.MarkFlagRequired("email")
}
