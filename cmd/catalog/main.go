package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chromabloom/internal/config"
	"chromabloom/internal/database"
	"chromabloom/internal/security"
	"chromabloom/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outputPath string
	role       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the activity catalog and child directory",
		Long: `catalog imports and exports the activity catalog, caregivers and children
as YAML, and issues bearer tokens for the API. Database settings are read from
the same environment variables as the server.`,
		SilenceUsage: true,
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog and directory to a YAML file",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: catalog_YYYYMMDD_HHMMSS.yaml)")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a YAML catalog, upserting records by id",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	tokenCmd := &cobra.Command{
		Use:   "token <caregiver-id>",
		Short: "Issue a bearer token for a caregiver",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
	tokenCmd.Flags().StringVar(&role, "role", string(security.RoleCaregiver), "token role (caregiver or admin)")

	rootCmd.AddCommand(exportCmd, importCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openBackupService(ctx context.Context) (*service.BackupService, func(), error) {
	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if _, err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cleanup := func() {
		db.Close()
		logger.Sync()
	}
	return service.NewBackupService(db, logger), cleanup, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	path := outputPath
	if path == "" {
		path = fmt.Sprintf("catalog_%s.yaml", time.Now().Format("20060102_150405"))
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	backup, cleanup, err := openBackupService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if err := backup.Export(cmd.Context(), path); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported catalog to %s\n", path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	backup, cleanup, err := openBackupService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := backup.Import(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d activities, %d caregivers, %d children\n",
		summary.Activities, summary.Caregivers, summary.Children)
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	token, err := security.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL).Issue(args[0], security.Role(role))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
