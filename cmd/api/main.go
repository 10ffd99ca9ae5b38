package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/hivekeeper/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hivekeeper",
		Short: "HiveKeeper journal server",
		Long:  `HiveKeeper is a beekeeping journal that tracks apiaries, hives, inspections, tasks and harvest yields in a single local storage file.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
