package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/workers"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var pendingTTL time.Duration

// storefrontctl reconcile
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciler pass and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			rep, err := workers.NewReconciler(db, logger, "", pendingTTL).RunOnce(ctx)
			out, _ := json.MarshalIndent(rep, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		})
	},
}

// storefrontctl recompute-ratings
var recomputeRatingsCmd = &cobra.Command{
	Use:   "recompute-ratings",
	Short: "Rewrite every product rating from its reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			n, err := workers.NewReconciler(db, logger, "", 0).RecomputeRatings(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d products\n", n)
			return err
		})
	},
}

func init() {
	reconcileCmd.Flags().DurationVar(&pendingTTL, "pending-ttl", 48*time.Hour, "cancel pending orders older than this (0 disables)")
}
