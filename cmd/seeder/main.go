package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/locvowork/employee_records/apigateway/internal/bootstrap"
	"github.com/locvowork/employee_records/apigateway/internal/database"
	"github.com/locvowork/employee_records/apigateway/internal/service"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seeder",
		Short:         "Seed or clear employee records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(seedCmd(), clearCmd())
	return cmd
}

func seedCmd() *cobra.Command {
	var (
		preset    string
		count     int
		prefix    string
		seed      int64
		workers   int
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create sample employees through the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				n, err := database.PresetCount(preset)
				if err != nil {
					return err
				}
				count = n
			}

			return withSeeder(cmd.Context(), func(ctx context.Context, seeder *database.DataSeeder) error {
				fmt.Printf("Seeding %d employees (prefix %q, seed %d)\n", count, prefix, seed)
				report, err := seeder.SeedData(ctx, database.SeedOptions{
					Count:     count,
					Prefix:    prefix,
					Seed:      seed,
					Workers:   workers,
					BatchSize: batchSize,
				})
				if err != nil {
					return fmt.Errorf("seeding failed: %w", err)
				}
				fmt.Printf("Created %d, skipped %d, failed %d, indexed %d\n",
					report.Created, report.Skipped, report.Failed, report.Indexed)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "small", "Data preset: small, medium, large, xlarge")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of employees (overrides preset)")
	cmd.Flags().StringVar(&prefix, "prefix", "E", "Employee ID prefix")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed for sample data")
	cmd.Flags().IntVarP(&workers, "workers", "w", 8, "Concurrent creates")
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "Search mirror bulk size")
	return cmd
}

func clearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every employee record and empty the search mirror",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, "This will delete all employee records. Continue? (yes/no): ") {
				fmt.Println("Cancelled.")
				return nil
			}
			return withSeeder(cmd.Context(), func(ctx context.Context, seeder *database.DataSeeder) error {
				n, err := seeder.ClearData(ctx)
				if err != nil {
					return fmt.Errorf("clear failed: %w", err)
				}
				fmt.Printf("Deleted %d employees\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}

// withSeeder opens the configured store and search mirror for one command.
// Events are not published for seeded records.
func withSeeder(ctx context.Context, fn func(context.Context, *database.DataSeeder) error) error {
	if err := bootstrap.LoadConfig(ctx); err != nil {
		return err
	}

	store, err := bootstrap.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	search, err := bootstrap.OpenSearchIndex(ctx)
	if err != nil {
		return err
	}

	svc := service.NewEmployeeService(store.Repo)
	var seeder *database.DataSeeder
	if search != nil {
		defer search.Stop()
		seeder = database.NewDataSeeder(svc, store.Repo, search)
	} else {
		seeder = database.NewDataSeeder(svc, store.Repo, nil)
	}
	return fn(ctx, seeder)
}
