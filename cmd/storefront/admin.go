package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/validate"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the schema, optionally with demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := load()
		if err != nil {
			return err
		}
		defer closeLog()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		db, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if seed, _ := cmd.Flags().GetBool("seed"); seed {
			if err := repos.Seed(ctx, db, bcrypt.DefaultCost); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready, demo data loaded (password %q)\n", repos.DemoPassword)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
		return nil
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a back-office principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := load()
		if err != nil {
			return err
		}
		defer closeLog()

		in := services.RegisterInput{}
		in.Email, _ = cmd.Flags().GetString("email")
		in.Username, _ = cmd.Flags().GetString("username")
		in.Password, _ = cmd.Flags().GetString("password")
		role, _ := cmd.Flags().GetString("role")
		if err := validate.Struct(in); err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		db, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		svc := services.NewAuthService(repos.NewUserRepo(db), nil)
		u, err := svc.CreatePrincipal(ctx, in, role)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (id %d)\n", u.Role, u.Email, u.ID)
		return nil
	},
}

func init() {
	initdbCmd.Flags().Bool("seed", false, "load demo users, catalog and a store")

	f := createAdminCmd.Flags()
	f.String("email", "", "email address")
	f.String("username", "", "username")
	f.String("password", "", "password")
	f.String("role", domain.RoleAdmin, "admin or store_staff")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("password")
}
