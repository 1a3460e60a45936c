package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivankudzin/portfolio/internal/domain/embed"
	"github.com/ivankudzin/portfolio/internal/domain/enums"
	pgrepo "github.com/ivankudzin/portfolio/internal/repo/postgres"
	authsvc "github.com/ivankudzin/portfolio/internal/services/auth"
)

func newHashPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash of a password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(password) == "" {
				return fmt.Errorf("use --password to pass the plain password")
			}
			hash, err := authsvc.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "plain password")
	return cmd
}

func newCreateAdminCmd(opts *rootOptions) *cobra.Command {
	var (
		email    string
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin user or reset an existing one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			adminRole, ok := enums.ParseAdminRole(strings.ToUpper(strings.TrimSpace(role)))
			if !ok {
				return fmt.Errorf("role must be OWNER or EDITOR")
			}
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("use --email to pass the admin email")
			}
			hash, err := authsvc.HashPassword(password)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			pool, err := opts.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			user, err := pgrepo.NewAdminUserRepo(pool).Upsert(ctx, email, hash, adminRole)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s (%s) ready, id=%s\n", user.Email, user.Role, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "plain password")
	cmd.Flags().StringVar(&role, "role", string(enums.AdminRoleOwner), "OWNER or EDITOR")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			pool, err := opts.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pgrepo.ApplySchema(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

type classifyOutput struct {
	embed.MediaReference
	Label string `json:"label"`
	HTML  string `json:"html"`
}

func newClassifyCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "classify URL...",
		Short: "Show how media URLs resolve to embeds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			for _, raw := range args {
				ref := embed.Classify(raw)
				if err := encoder.Encode(classifyOutput{
					MediaReference: ref,
					Label:          ref.Platform.Label(),
					HTML:           string(embed.Render(ref, title)),
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title used for the iframe")
	return cmd
}
