package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"health-companion-backend/internal/config"
	"health-companion-backend/internal/database"
	"health-companion-backend/internal/handlers"
	"health-companion-backend/internal/repository"
	"health-companion-backend/internal/risk"
	"health-companion-backend/internal/services"
	"health-companion-backend/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "healthd",
	Short:         "Health companion API server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(configPath)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(db database.DB) error {
			if err := db.MigrateUp(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Database is up to date.")
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that all migrations are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(db database.DB) error {
			if err := db.MigrationStatus(); err != nil {
				return err
			}
			fmt.Println("Database is up to date.")
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

// Execute runs the command line
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func withDatabase(fn func(db database.DB) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.NewFromConfig(context.Background(), cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return fn(db)
}

// Run starts the API server and blocks until SIGINT or SIGTERM
func Run(path string) error {
	// Load configuration
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	// Setup logger
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	// Connect to database
	ctx := context.Background()
	db, err := database.NewFromConfig(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Str("type", cfg.Database.Type).Msg("Database connection established")

	// An in-memory database starts empty every time
	if cfg.Database.AutoMigrate || cfg.Database.Type == "memory" {
		if err := db.MigrateUp(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	} else if err := db.MigrationStatus(); err != nil {
		return fmt.Errorf("%w (run `healthd migrate up`)", err)
	}

	// Initialize services
	store := repository.NewStore(db)
	clock := services.RealClock{}
	ids := services.UUIDGenerator{}

	svc := handlers.Services{
		Users:         services.NewUserService(store, cfg.JWT.Secret, cfg.JWT.Expiry(), clock, ids),
		Connections:   services.NewConnectionService(store, clock, ids),
		Records:       services.NewHealthRecordService(store, risk.NewEvaluator(), clock, ids),
		Medications:   services.NewMedicationService(store, clock, ids),
		Notifications: services.NewNotificationService(store),
		DB:            store,
	}

	if cfg.AWS.Enabled() {
		objects, err := storage.NewS3Store(ctx, cfg.AWS)
		if err != nil {
			return fmt.Errorf("failed to create object store: %w", err)
		}
		svc.Exports = services.NewExportService(store, objects, cfg.Export.URLTTL, clock, ids)
		log.Info().Str("bucket", cfg.AWS.S3Bucket).Msg("Exports enabled")
	} else {
		log.Warn().Msg("aws.s3_bucket not set, exports disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handlers.NewRouter(svc),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
