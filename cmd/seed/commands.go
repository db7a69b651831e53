package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"elbiefit/infrastructure/seed"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Seed the demo dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd, seed.DatasetDemo)
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Seed the test dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd, seed.DatasetTest)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every item in the user's partition",
	Long: `Delete every item stored under the user's partition key: profile,
exercises, workouts and sets.

CAUTION:

  There is no undo.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deleted, err := container.DemoResets.PurgeUser(cmd.Context(), userSub)
		if err != nil {
			return fmt.Errorf("purge %s: %w", userSub, err)
		}
		color.Yellow("✗ Purged %s", userSub)
		fmt.Printf("  %s items deleted\n", color.New(color.Bold).Sprint(deleted))
		return nil
	},
}

func runSeed(cmd *cobra.Command, dataset string) error {
	summary, err := container.Seeder.SeedDataset(cmd.Context(), userSub, dataset)
	if err != nil {
		return fmt.Errorf("seed %s: %w", dataset, err)
	}

	color.Green("✓ Seeded %s dataset for %s", dataset, userSub)
	faint := color.New(color.Faint)
	fmt.Printf("  %s exercises\n", faint.Sprint(summary.Exercises))
	fmt.Printf("  %s workouts\n", faint.Sprint(summary.Workouts))
	fmt.Printf("  %s sets\n", faint.Sprint(summary.Sets))
	return nil
}

func init() {
	rootCmd.AddCommand(demoCmd, testCmd, purgeCmd)
}
