package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/hivekeeper/core/internal/adapters/repository"
	"github.com/hivekeeper/core/internal/application/services"
	"github.com/hivekeeper/core/internal/infrastructure/config"
	"github.com/hivekeeper/core/internal/infrastructure/database"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
	"github.com/hivekeeper/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HiveKeeper journal server",
		Long:  "Start the HiveKeeper journal server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewSeedCommand creates the seed command. Reseeding wipes the journal, so it
// refuses to run without --force.
func NewSeedCommand() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the journal with the first-run sample data",
		Long:  "Replace the whole journal state with the first-run sample apiary and hives. This wipes every record, resets registration and restarts the trial clock.",
		Run: func(cmd *cobra.Command, args []string) {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				log.Fatal("Reseeding wipes the journal. Re-run with --force to proceed.")
			}
			runSeed()
		},
	}

	seedCmd.Flags().Bool("force", false, "Confirm wiping the current journal")
	return seedCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print HiveKeeper version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fmt.Println("HiveKeeper Core (unknown version)")
				return
			}
			fmt.Printf("%s v%s\n", cfg.App.Name, cfg.App.Version)
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	db, err := database.New(cfg.Storage)
	if err != nil {
		appLogger.Fatal("Failed to open storage", "error", err)
	}
	defer db.Close()

	srv, err := server.New(cfg, db, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize server", "error", err)
	}

	appLogger.Info("Starting HiveKeeper journal server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
	)

	if err := srv.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		appLogger.Fatal("Server failed to start", "error", err)
	}
}

func runSeed() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	db, err := database.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer db.Close()

	kvRepo, err := repository.NewKVRepository(db)
	if err != nil {
		log.Fatalf("Failed to initialize key-value storage: %v", err)
	}
	stateRepo := repository.NewStateRepository(kvRepo, cfg.Storage.StateKey)
	store := services.NewStoreService(stateRepo, cfg.Trial, appLogger)

	if err := store.Reseed(context.Background()); err != nil {
		log.Fatalf("Failed to reseed journal: %v", err)
	}

	fmt.Println("Journal reseeded with first-run sample data")
}
