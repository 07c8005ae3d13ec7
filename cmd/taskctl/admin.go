package main

import (
	"fmt"

	"github.com/spf13/cobra"
	identityapp "github.com/taskprod/backend/internal/application/identity"
	"github.com/taskprod/backend/internal/infrastructure/auth"
	"github.com/taskprod/backend/internal/infrastructure/mail"
	"github.com/taskprod/backend/internal/infrastructure/persistence"
)

func (a *app) createAdminCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the staff account from ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := persistence.NewDatabase(&a.cfg.Database, persistence.WithLogger(a.log, "silent"))
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if migrate {
				if err := db.AutoMigrate(); err != nil {
					return err
				}
			}

			users := persistence.NewGormUserRepository(db.DB)
			svc := identityapp.NewAuthService(
				users,
				auth.NewJWTService(a.cfg.JWT),
				auth.NewInMemoryTokenBlacklist(),
				auth.NewPasswordResetTokens(a.cfg.JWT),
				mail.NewLogSender(a.cfg.Mail.From, a.log),
				a.log,
			)
			admin := a.cfg.Admin
			created, err := svc.EnsureAdmin(cmd.Context(), identityapp.AdminInput{
				Username: admin.Username,
				Email:    admin.Email,
				Password: admin.Password,
			})
			if err != nil {
				return fmt.Errorf("failed to create admin: %w", err)
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q already exists\n", admin.Username)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", admin.Username)
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "auto-migrate", false, "Create missing tables first (sqlite and development)")
	return cmd
}
