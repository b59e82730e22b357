package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dimmoon69/booktime/internal/fixtures"
	"github.com/dimmoon69/booktime/internal/repo"
	pkgdb "github.com/dimmoon69/booktime/pkg/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := bootDB()
		if err != nil {
			return err
		}
		defer pkgdb.Close(db)

		if err := repo.Migrate(context.Background(), db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations_applied")
		return nil
	},
}

var (
	superuserEmail    string
	superuserPassword string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a staff account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := bootApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		u, err := a.auth.CreateSuperuser(ctx, superuserEmail, superuserPassword)
		if err != nil {
			return fmt.Errorf("create superuser: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created staff user %s (%s)\n", u.Email, u.ID)
		return nil
	},
}

var loadDataCmd = &cobra.Command{
	Use:   "loaddata <file.yaml>",
	Short: "Load tags and products from a YAML fixture file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		ctx := context.Background()
		a, err := bootApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		res, err := fixtures.Load(ctx, f, a.catalog)
		if err != nil {
			return fmt.Errorf("loaddata: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tags: %d created, %d skipped; products: %d created, %d skipped\n",
			res.TagsCreated, res.TagsSkipped, res.ProductsCreated, res.ProductsSkipped)
		return nil
	},
}

func init() {
	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "staff email")
	createSuperuserCmd.Flags().StringVar(&superuserPassword, "password", "", "staff password")
	_ = createSuperuserCmd.MarkFlagRequired("email")
	_ = createSuperuserCmd.MarkFlagRequired("password")
}
