package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"elbiefit/infrastructure/config"
	"elbiefit/infrastructure/di"
)

var (
	container *di.Container
	cleanup   func()
	userSub   string
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load or wipe ElbieFit datasets for a user",
	Long: `Seed writes an embedded dataset into one user's partition of the
configured store, or wipes that partition.

EXAMPLES:

  seed demo --sub 1234-abcd     # Demo profile, exercises and workouts
  seed test --sub 1234-abcd     # Test fixtures (Lisa Test)
  seed purge --sub 1234-abcd    # Delete every row the user owns

The store is chosen the same way as the API: STORE_BACKEND, TABLE_NAME,
BADGER_PATH and DYNAMODB_ENDPOINT.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsStore(cmd) {
			return nil
		}
		if userSub == "" {
			return fmt.Errorf("--sub is required")
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		container, cleanup, err = di.InitializeContainer(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("initialize container: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cleanup != nil {
			cleanup()
		}
		if container != nil {
			_ = container.Logger.Sync()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&userSub, "sub", "", "user sub (Cognito subject) to seed")
}

// needsStore is false for cobra's own help and completion commands
func needsStore(cmd *cobra.Command) bool {
	return cmd == demoCmd || cmd == testCmd || cmd == purgeCmd
}
