package main

import (
	"context"
	"fmt"
	"os"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Connect migrates as part of opening the database
			if _, err := bootstrap(); err != nil {
				return err
			}
			defer database.Close()
			log.Info().Msg("Migrations applied")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a superadmin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			return withApp(func(ctx context.Context, a *app) error {
				user, err := a.services.Accounts.CreateAdmin(ctx, username, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Superadmin %q created (id %d)\n", user.Username, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password, falls back to $ADMIN_PASSWORD")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")
	return cmd
}

func createDoctorCmd() *cobra.Command {
	var username, email, fullName, specialization, password string

	cmd := &cobra.Command{
		Use:   "create-doctor",
		Short: "Create a doctor login with its profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("DOCTOR_PASSWORD")
			}
			return withApp(func(ctx context.Context, a *app) error {
				user, err := a.services.Accounts.CreateDoctorAccount(ctx, username, email, fullName, specialization, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Doctor %q created (id %d)\n", user.Username, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&fullName, "full-name", "", "name shown on the doctor profile")
	cmd.Flags().StringVar(&specialization, "specialization", "", "defaults to General Medicine")
	cmd.Flags().StringVar(&password, "password", "", "password, falls back to $DOCTOR_PASSWORD")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")
	return cmd
}

