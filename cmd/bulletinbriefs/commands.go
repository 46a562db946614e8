package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"BulletinBriefs/internal/app"
	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/httpapi"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one SEO health scan and print the report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
			report, err := a.Scan(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the auto-fix verification pass now",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
			report, err := a.Verify(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin API with the scan scheduler and verification worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application, logger *slog.Logger) error {
			logger.Info("starting service")
			return a.Serve(ctx)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the SEO log tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application, logger *slog.Logger) error {
			if err := a.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("schema applied")
			return nil
		})
	},
}

var (
	draftTopic    string
	draftCategory string
	draftNotes    string
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Generate an AI news draft",
	Long: `Asks the AI generator for a complete article draft and prints it as JSON.

Example:
  bulletinbriefs draft --topic "Monsoon arrives early in Kerala" --category Weather`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
			draft, err := a.Draft(ctx, domain.DraftBrief{Topic: draftTopic, Category: draftCategory, Notes: draftNotes})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), draft)
		})
	},
}

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin API bearer token signed with api.jwtSecret",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig()
		if cfg.API.JWTSecret == "" {
			return errors.New("api.jwtSecret is not configured")
		}
		token, err := httpapi.SignToken([]byte(cfg.API.JWTSecret), tokenSubject, tokenRole, tokenTTL)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	draftCmd.Flags().StringVar(&draftTopic, "topic", "", "Article topic (required)")
	draftCmd.Flags().StringVar(&draftCategory, "category", "", "Article category")
	draftCmd.Flags().StringVar(&draftNotes, "notes", "", "Extra instructions for the writer")
	_ = draftCmd.MarkFlagRequired("topic")

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "Token subject")
	tokenCmd.Flags().StringVar(&tokenRole, "role", httpapi.RoleAdmin, "Role claim (admin or service_role)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}
