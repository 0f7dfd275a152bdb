// Package main provides the replay verification entry point.
// Re-executes stored forecast runs from persisted observations and
// compares the regenerated series against the stored rows.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/model"
	"ev-forecast-lab/internal/storage"
	chstore "ev-forecast-lab/internal/storage/clickhouse"
	pgstore "ev-forecast-lab/internal/storage/postgres"
	"ev-forecast-lab/internal/verification"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	runID := flag.String("run-id", "", "Run ID to verify (empty = most recent run)")
	entity := flag.String("entity", "", "Verify a single entity instead of the whole run")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	modelKind := flag.String("model", domain.ModelKindNaive, "Model kind the run was produced with: naive, http")
	modelEndpoint := flag.String("model-endpoint", os.Getenv("MODEL_ENDPOINT"), "HTTP model service base URL")
	modelTimeoutMs := flag.Int64("model-timeout-ms", 0, "HTTP model call timeout (ms, 0 = client default)")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	// Validate required flags
	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (replay verifies persisted runs)")
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

	// PostgreSQL for the registry, observations and run metadata
	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	// ClickHouse for the persisted series
	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	runStore := pgstore.NewForecastRunStore(pool)
	entityStore := pgstore.NewEntityStore(pool)
	combinedStore := chstore.NewCombinedPointStore(conn)
	forecastStore := chstore.NewForecastPointStore(conn)

	// Create the model the run claims to have used
	m, err := model.FromConfig(domain.ModelConfig{
		Kind:      *modelKind,
		Endpoint:  *modelEndpoint,
		TimeoutMs: *modelTimeoutMs,
	})
	if err != nil {
		logger.Fatalf("create model: %v", err)
	}

	// Resolve the run under verification
	id, err := resolveRunID(ctx, runStore, *runID)
	if err != nil {
		logger.Fatalf("resolve run: %v", err)
	}

	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		RunStore:      runStore,
		CombinedStore: combinedStore,
		ForecastStore: forecastStore,
		EntityStore:   entityStore,
		Model:         m,
	})

	// Single-entity verification
	if *entity != "" {
		result, err := verifier.VerifyEntity(ctx, id, *entity)
		if err != nil {
			logger.Fatalf("verify entity: %v", err)
		}

		if *outputJSON {
			output, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(output))
		} else {
			printResult(id, result)
		}

		if !result.Match {
			os.Exit(1)
		}
		return
	}

	// Whole-run verification
	report, err := verifier.VerifyRun(ctx, id)
	if err != nil {
		logger.Fatalf("verify run: %v", err)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		printReport(report)
	}

	// Non-zero exit when any entity diverged
	if report.DivergentEntities > 0 {
		os.Exit(1)
	}
}

// resolveRunID returns the requested run ID, or the most recent stored
// run when the flag was left empty.
func resolveRunID(ctx context.Context, runStore storage.ForecastRunStore, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	runs, err := runStore.List(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no forecast runs stored")
	}
	// List orders by started_at DESC
	return runs[0].RunID, nil
}

// printResult outputs a human-readable single-entity verification.
func printResult(runID string, r *verification.VerificationResult) {
	fmt.Println()
	fmt.Println("=== Replay Verification ===")
	fmt.Printf("Run ID:          %s\n", runID)
	fmt.Printf("Entity:          %s\n", r.EntityName)
	fmt.Printf("Match:           %v\n", r.Match)
	fmt.Printf("Stored final:    %.4f\n", r.StoredFinal)
	fmt.Printf("Replayed final:  %.4f\n", r.ReplayedFinal)

	if len(r.Divergences) > 0 {
		fmt.Printf("Divergences:     %d\n", len(r.Divergences))
		for _, d := range r.Divergences {
			fmt.Printf("  %s: stored %v, replayed %v\n", d.Field, d.Expected, d.Actual)
		}
	}
}

// printReport outputs a human-readable whole-run verification report.
func printReport(rep *verification.VerificationReport) {
	fmt.Println()
	fmt.Println("=== Replay Verification ===")
	fmt.Printf("Run ID:     %s\n", rep.RunID)
	fmt.Printf("Entities:   %d\n", rep.TotalEntities)
	fmt.Printf("Matched:    %d\n", rep.MatchedEntities)
	fmt.Printf("Divergent:  %d\n", rep.DivergentEntities)

	for _, r := range rep.Results {
		if r.Match {
			fmt.Printf("  [ok] %s (final %.4f)\n", r.EntityName, r.StoredFinal)
			continue
		}
		fmt.Printf("  [DIVERGED] %s: %d divergences\n", r.EntityName, len(r.Divergences))
		for _, d := range r.Divergences {
			fmt.Printf("    %s: stored %v, replayed %v\n", d.Field, d.Expected, d.Actual)
		}
	}
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
