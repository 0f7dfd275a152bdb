// Package main provides the holdout evaluation entry point.
// Scores a candidate model against the naive baseline on withheld
// months and renders the adoption decision report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"ev-forecast-lab/internal/decision"
	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/evaluation"
	"ev-forecast-lab/internal/forecast"
	"ev-forecast-lab/internal/model"
	"ev-forecast-lab/internal/pipeline"
	"ev-forecast-lab/internal/storage"
	"ev-forecast-lab/internal/storage/memory"
	"ev-forecast-lab/internal/storage/migrations"
	pgstore "ev-forecast-lab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	seedFixtures := flag.Bool("seed-fixtures", false, "Seed stores with the demo fixture dataset before evaluating")
	entities := flag.String("entities", "", "Comma-separated entity names (empty = all registered)")
	holdout := flag.Int("holdout", evaluation.DefaultHoldout, "Trailing months to withhold")
	modelKind := flag.String("model", domain.ModelKindNaive, "Model kind: naive, http")
	modelEndpoint := flag.String("model-endpoint", os.Getenv("MODEL_ENDPOINT"), "HTTP model service base URL")
	modelTimeoutMs := flag.Int64("model-timeout-ms", 0, "HTTP model call timeout (ms, 0 = client default)")
	outputDir := flag.String("output-dir", "output", "Output directory for the decision report")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[evaluate] ", log.LstdFlags)

	// Validate required flags
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if *seedFixtures && !*useMemory {
		logger.Fatal("--seed-fixtures requires --use-memory (use cmd/seed for databases)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores (evaluation reads the registry and observations only)
	var entityStore storage.EntityStore = memory.NewEntityStore()
	var obsStore storage.ObservationStore = memory.NewObservationStore()

	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("postgres migrations: %v", err)
		}

		entityStore = pgstore.NewEntityStore(pool)
		obsStore = pgstore.NewObservationStore(pool)
	}

	// Seed fixture data when requested
	if *seedFixtures {
		if err := pipeline.LoadFixtures(ctx, entityStore, obsStore); err != nil {
			logger.Fatalf("load fixtures: %v", err)
		}
	}

	// Create the candidate model
	m, err := model.FromConfig(domain.ModelConfig{
		Kind:      *modelKind,
		Endpoint:  *modelEndpoint,
		TimeoutMs: *modelTimeoutMs,
	})
	if err != nil {
		logger.Fatalf("create model: %v", err)
	}

	// Build evaluation requests from stored histories
	requests, err := buildRequests(ctx, entityStore, obsStore, splitList(*entities))
	if err != nil {
		logger.Fatalf("load histories: %v", err)
	}
	if len(requests) == 0 {
		logger.Fatal("No entities to evaluate. Seed the registry first (cmd/seed or --seed-fixtures)")
	}

	// Evaluate
	evaluator := evaluation.New(evaluation.Options{
		Model:   m,
		Holdout: *holdout,
		Verbose: *verbose,
	})
	report := evaluator.EvaluateMany(ctx, requests)

	// Decide
	input, err := decision.BuildInput(report)
	if err != nil {
		logger.Fatalf("build decision input: %v", err)
	}
	result, err := decision.NewEvaluator().Evaluate(input)
	if err != nil {
		logger.Fatalf("evaluate decision: %v", err)
	}

	// Write the decision report
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatalf("create output directory: %v", err)
	}
	reportPath := filepath.Join(*outputDir, "DECISION_REPORT.md")
	if err := os.WriteFile(reportPath, []byte(decision.RenderMarkdown(result)), 0644); err != nil {
		logger.Fatalf("write decision report: %v", err)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(evaluationOutput{Report: report, Decision: result}, "", "  ")
		fmt.Println(string(output))
		return
	}

	printEvaluation(report, result)
	fmt.Printf("\nDecision report written to %s\n", reportPath)
}

// evaluationOutput is the JSON document emitted by --json.
type evaluationOutput struct {
	Report   *evaluation.Report `json:"report"`
	Decision *decision.Result   `json:"decision"`
}

// buildRequests loads each requested entity and its observation history.
// An empty filter selects every registered entity.
func buildRequests(
	ctx context.Context,
	entityStore storage.EntityStore,
	obsStore storage.ObservationStore,
	filter []string,
) ([]forecast.Request, error) {
	var entities []*domain.Entity

	if len(filter) == 0 {
		all, err := entityStore.List(ctx)
		if err != nil {
			return nil, err
		}
		entities = all
	} else {
		for _, name := range filter {
			e, err := entityStore.GetByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("entity %s: %w", name, err)
			}
			entities = append(entities, e)
		}
	}

	requests := make([]forecast.Request, 0, len(entities))
	for _, e := range entities {
		points, err := obsStore.GetByEntity(ctx, e.Name)
		if err != nil {
			return nil, fmt.Errorf("observations for %s: %w", e.Name, err)
		}
		history := make([]domain.SeriesPoint, len(points))
		for i, p := range points {
			history[i] = *p
		}
		requests = append(requests, forecast.Request{Entity: *e, History: history})
	}
	return requests, nil
}

// printEvaluation outputs a human-readable evaluation summary.
func printEvaluation(report *evaluation.Report, result *decision.Result) {
	fmt.Println()
	fmt.Println("=== Holdout Evaluation ===")
	fmt.Printf("Model:          %s\n", report.ModelID)
	fmt.Printf("Holdout:        %d months\n", report.Holdout)
	fmt.Printf("Requested:      %d entities\n", report.Requested)
	fmt.Printf("Scored:         %d (coverage %.0f%%)\n", len(report.Scores), report.Coverage()*100)
	fmt.Println()

	fmt.Println("Mean metrics:")
	fmt.Printf("  MAE:          %.4f\n", report.MeanMAE())
	fmt.Printf("  MAPE:         %.2f%%\n", report.MeanMAPE())
	fmt.Printf("  R2:           %.4f\n", report.MeanR2())
	fmt.Printf("  MAE ratio:    %.4f (vs naive baseline)\n", report.MeanMAERatio())
	fmt.Println()

	if len(report.Scores) > 0 {
		fmt.Println("Per entity:")
		for _, s := range report.Scores {
			fmt.Printf("  %-12s MAE %8.3f  MAPE %6.2f%%  R2 %7.4f  ratio %.4f\n",
				s.EntityName, s.MAE, s.MAPE, s.R2, s.MAERatio)
		}
		fmt.Println()
	}

	if len(report.Errors) > 0 {
		fmt.Printf("Failures: %d\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Printf("  - %s\n", e)
		}
		fmt.Println()
	}

	fmt.Printf("Verdict: %s\n", result.Verdict)
	for _, c := range result.AcceptCriteria {
		fmt.Printf("  [%s] %s: %s (threshold %s)\n", passMark(c.Pass), c.Name, c.Actual, c.Threshold)
	}
	for _, c := range result.RejectTriggers {
		if !c.Pass {
			fmt.Printf("  [!] %s: %s (trigger %s)\n", c.Name, c.Actual, c.Threshold)
		}
	}
}

func passMark(pass bool) string {
	if pass {
		return "x"
	}
	return " "
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var list []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	return list
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
