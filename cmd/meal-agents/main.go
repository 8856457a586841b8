package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"meal-agents/internal/agents"
	"meal-agents/internal/app"
	"meal-agents/internal/config"
	"meal-agents/internal/pipeline"
)

var (
	verbose     bool
	searchWeb   bool
	cleanupDays int
	reportDays  int
)

var rootCmd = &cobra.Command{
	Use:   "meal-agents",
	Short: "LLM-backed meal planning agents with deterministic fallbacks",
	Long: `meal-agents runs six meal-planning use cases against a Gemini backend.

Each command reads one JSON request on stdin and writes one JSON artifact
on stdout. Invalid input fails fast with a non-zero exit; every failure
after input validation resolves to a deterministic fallback artifact with
exit code 0.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var recipeCmd = &cobra.Command{
	Use:   "recipe",
	Short: "Generate a single recipe from preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUseCase(cmd.Context(), agents.Recipe(searchWeb), func(raw []byte) (agents.RecipeInput, error) {
			return agents.ParseRecipeInput(raw, searchWeb)
		})
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Assemble a weekly plan from a recipe pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUseCase(cmd.Context(), agents.WeeklyPlan(), agents.ParsePlanInput)
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Rebalance a weekly plan for diet and variety",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUseCase(cmd.Context(), agents.DietBalance(), agents.ParseBalanceInput)
	},
}

var wasteCmd = &cobra.Command{
	Use:   "waste",
	Short: "Analyze a recipe set for ingredient waste",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUseCase(cmd.Context(), agents.WasteReduction(), agents.ParseWasteInput)
	},
}

var shoppingCmd = &cobra.Command{
	Use:   "shopping",
	Short: "Normalize and aggregate a shopping list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUseCase(cmd.Context(), agents.ShoppingNormalizer(), agents.ParseShoppingInput)
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Compact free-text feedback into structured preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUseCase(cmd.Context(), agents.FeedbackCompactor(), agents.ParseFeedbackInput)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Report daily token usage and fallback counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, log, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		defer log.Sync()

		usage, err := a.MetricsStore().GetDailyUsage(cmd.Context(), reportDays)
		if err != nil {
			return fmt.Errorf("failed to load usage: %w", err)
		}
		if len(usage) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		fmt.Printf("%-12s %10s %12s %6s %10s\n", "DATE", "PROMPT", "COMPLETION", "RUNS", "FALLBACKS")
		for _, u := range usage {
			fmt.Printf("%-12s %10d %12d %6d %10d\n", u.Date, u.TotalPrompt, u.TotalCompletion, u.TotalRuns, u.Fallbacks)
		}
		return nil
	},
}

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Delete run metrics older than N days",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, log, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		defer log.Sync()

		deleted, err := a.MetricsStore().Cleanup(cmd.Context(), cleanupDays)
		if err != nil {
			return fmt.Errorf("failed to clean up metrics: %w", err)
		}
		fmt.Printf("Deleted %d run records older than %d days.\n", deleted, cleanupDays)
		return nil
	},
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildApp(ctx context.Context) (*app.App, *zap.Logger, error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}

func runUseCase[I, O any](ctx context.Context, uc pipeline.UseCase[I, O], parse func([]byte) (I, error)) error {
	a, log, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	defer log.Sync()

	return app.Execute(ctx, a, uc, parse, os.Stdin, os.Stdout)
}

func main() {
	recipeCmd.Flags().BoolVar(&searchWeb, "search", false, "ground the recipe with web search results")
	metricsCmd.Flags().IntVar(&reportDays, "days", 7, "number of days to report")
	metricsCleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "delete records older than this many days")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		recipeCmd,
		planCmd,
		balanceCmd,
		wasteCmd,
		shoppingCmd,
		feedbackCmd,
		metricsCmd,
		metricsCleanupCmd,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var inputErr *pipeline.InputError
		if errors.As(err, &inputErr) {
			fmt.Fprintf(os.Stderr, "invalid input: %v\n", inputErr)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
