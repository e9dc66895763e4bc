package main

import (
	"context"
	"fmt"
	"os"

	authdomain "inquiry-backend/internal/auth/domain"
	authrepo "inquiry-backend/internal/auth/repository"
	"inquiry-backend/internal/auth/token"
	authusecase "inquiry-backend/internal/auth/usecase"
	catalogrepo "inquiry-backend/internal/catalog/repository"
	catalogusecase "inquiry-backend/internal/catalog/usecase"
	orderrepo "inquiry-backend/internal/order/repository"
	paymentusecase "inquiry-backend/internal/payment/usecase"
	"inquiry-backend/pkg/config"
	"inquiry-backend/pkg/database"
	"inquiry-backend/pkg/epay"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "inquiry-admin",
		Short: "Operator commands for the inquiry backend",
	}

	rootCmd.AddCommand(promoteCmd())
	rootCmd.AddCommand(seedServicesCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func promoteCmd() *cobra.Command {
	var demote bool
	cmd := &cobra.Command{
		Use:   "promote [email]",
		Short: "Grant or revoke the admin role for an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
				auth := authusecase.NewAuthUsecase(
					authrepo.NewUserRepository(db),
					authrepo.NewFCMTokenRepository(db),
					token.NewService(cfg.JWTSecret, token.DefaultTTL),
					cfg,
				)
				role := authdomain.RoleAdmin
				if demote {
					role = authdomain.RoleUser
				}
				if err := auth.SetRole(ctx, args[0], role); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], role)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&demote, "demote", false, "revoke the admin role instead of granting it")
	return cmd
}

func seedServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-services [file]",
		Short: "Insert or update the service catalog from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
				n, err := catalogusecase.NewCatalogUsecase(catalogrepo.NewServiceRepository(db)).SeedFromFile(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d services\n", n)
				return nil
			})
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Query the payment gateway once for recent unpaid orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
				gateway := epay.NewClient(epay.Config{
					PID:      cfg.EpayPID,
					Key:      cfg.EpayKey,
					APIURL:   cfg.EpayAPIURL,
					SiteName: cfg.EpaySiteName,
				})
				payments := paymentusecase.NewPaymentUsecase(orderrepo.NewOrderRepository(db), gateway, cfg.EpayKey, nil)
				applied, err := payments.ReconcilePending(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "confirmed %d payments\n", applied)
				return nil
			})
		},
	}
}

func withDB(ctx context.Context, fn func(context.Context, *config.Config, *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(ctx, cfg, db)
}
