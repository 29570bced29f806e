package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"crm-backoffice/internal/config"
	"crm-backoffice/internal/database"
	"crm-backoffice/internal/handlers"
	"crm-backoffice/internal/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "server",
		Short:         "CRM back-office API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig()
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			return logger.Setup(cfg.GetLoggerConfig())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	})
	root.AddCommand(newMigrateCmd(&cfg))
	return root
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handlers.SetupRouter(db, cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.ServerAddress).Str("environment", cfg.Environment).Msg("Server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}

func newMigrateCmd(cfg **config.Config) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd.Context(), *cfg, args[0], steps)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "Number of migration steps (0 means all)")
	return cmd
}

func runMigration(ctx context.Context, cfg *config.Config, command string, steps int) error {
	// Connecting first creates the database when it does not exist yet.
	db, err := database.NewConnection(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}
	db.Close()

	m, err := migrate.New("file://"+cfg.Migration.Dir, cfg.GetMigrationDBURL())
	if err != nil {
		return fmt.Errorf("failed to initialize migrate: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verErr := m.Version()
		if errors.Is(verErr, migrate.ErrNilVersion) {
			log.Info().Msg("No migrations have been applied yet")
			return nil
		}
		if verErr != nil {
			return fmt.Errorf("failed to get version: %w", verErr)
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current migration version")
		return nil
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("No migration changes to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info().Str("command", command).Msg("Migration completed successfully")
	return nil
}
