// Package main provides the forecast run entry point.
// Executes: entity resolution → history loading → forecasting →
// persistence → aggregation
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ev-forecast-lab/internal/config"
	"ev-forecast-lab/internal/model"
	"ev-forecast-lab/internal/model/stub"
	"ev-forecast-lab/internal/orchestrator"
	"ev-forecast-lab/internal/pipeline"
	"ev-forecast-lab/internal/storage"
	chstore "ev-forecast-lab/internal/storage/clickhouse"
	"ev-forecast-lab/internal/storage/memory"
	"ev-forecast-lab/internal/storage/migrations"
	pgstore "ev-forecast-lab/internal/storage/postgres"
)

// stubModelKind selects the constant stub. It is a binary-level kind:
// the model factory only knows naive and http.
const stubModelKind = "stub"

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	horizon := flag.Int("horizon", config.DefaultHorizon, "Forecast horizon in months")
	workers := flag.Int("workers", config.DefaultWorkers, "Concurrent entity forecasts")
	entities := flag.String("entities", "", "Comma-separated entity names (empty = all registered)")
	modelKind := flag.String("model", "", "Model kind: naive, http, stub")
	modelEndpoint := flag.String("model-endpoint", os.Getenv("MODEL_ENDPOINT"), "HTTP model service base URL")
	modelTimeoutMs := flag.Int64("model-timeout-ms", 0, "HTTP model call timeout (ms, 0 = client default)")
	stubValue := flag.Float64("stub-value", 0, "Constant prediction for the stub model")
	seedFixtures := flag.Bool("seed-fixtures", false, "Seed stores with the demo fixture dataset before running")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[forecast] ", log.LstdFlags|log.Lshortfile)

	// Load config file when given, otherwise start from defaults
	cfg := &config.Config{}
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			logger.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg.ApplyDefaults()
	}

	// Explicit flags override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "postgres-dsn":
			cfg.Storage.PostgresDSN = *postgresDSN
		case "clickhouse-dsn":
			cfg.Storage.ClickhouseDSN = *clickhouseDSN
		case "use-memory":
			cfg.Storage.UseMemory = *useMemory
		case "horizon":
			cfg.Forecast.Horizon = *horizon
		case "workers":
			cfg.Forecast.Workers = *workers
		case "entities":
			cfg.Forecast.Entities = splitList(*entities)
		case "model":
			cfg.Model.Kind = *modelKind
		case "model-endpoint":
			cfg.Model.Endpoint = *modelEndpoint
		case "model-timeout-ms":
			cfg.Model.TimeoutMs = *modelTimeoutMs
		case "verbose":
			cfg.Forecast.Verbose = *verbose
		}
	})

	// Env DSNs fill remaining gaps (flag defaults carry them)
	if cfg.Storage.PostgresDSN == "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if cfg.Storage.ClickhouseDSN == "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}

	// Validate configuration. "stub" is not a factory kind, so check
	// the numeric knobs directly for it.
	if cfg.Model.Kind == stubModelKind {
		if cfg.Forecast.Horizon < 1 {
			logger.Fatalf("Invalid configuration: forecast.horizon must be >= 1, got %d", cfg.Forecast.Horizon)
		}
		if cfg.Forecast.Workers < 1 {
			logger.Fatalf("Invalid configuration: forecast.workers must be >= 1, got %d", cfg.Forecast.Workers)
		}
	} else if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if !cfg.Storage.UseMemory && (cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling run...", sig)
		cancel()
	}()

	// Create stores
	stores, cleanup, err := createStores(ctx, cfg.Storage.PostgresDSN, cfg.Storage.ClickhouseDSN, cfg.Storage.UseMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Seed fixture data when requested
	if *seedFixtures {
		if err := pipeline.LoadFixtures(ctx, stores.entityStore, stores.observationStore); err != nil {
			logger.Fatalf("Failed to seed fixtures: %v", err)
		}
		logger.Printf("Seeded fixture dataset: %d entities", len(pipeline.FixtureEntityNames()))
	}

	// Create model
	var m model.Model
	if cfg.Model.Kind == stubModelKind {
		m = stub.NewConstant(*stubValue)
	} else {
		var err error
		m, err = model.FromConfig(cfg.Model.ToDomain())
		if err != nil {
			logger.Fatalf("Failed to create model: %v", err)
		}
	}

	// Run orchestrator
	fmt.Println("=== Forecast Run ===")
	orch := orchestrator.New(orchestrator.Options{
		EntityStore:        stores.entityStore,
		ObservationStore:   stores.observationStore,
		ForecastRunStore:   stores.forecastRunStore,
		ForecastPointStore: stores.forecastPointStore,
		CombinedPointStore: stores.combinedPointStore,
		RunAggregateStore:  stores.runAggregateStore,
		Model:              m,
		Horizon:            cfg.Forecast.Horizon,
		Workers:            cfg.Forecast.Workers,
		Entities:           cfg.Forecast.Entities,
		Verbose:            cfg.Forecast.Verbose,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Orchestrator error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Orchestrator completed:\n")
	fmt.Printf("  Run ID: %s\n", result.RunID)
	fmt.Printf("  Model: %s\n", m.ID())
	fmt.Printf("  Entities: %d requested, %d succeeded, %d failed\n",
		result.EntitiesRequested, result.EntitiesSucceeded, result.EntitiesFailed)
	fmt.Printf("  Forecast points: %d\n", result.ForecastPoints)
	fmt.Printf("  Combined points: %d\n", result.CombinedPoints)
	fmt.Printf("  Aggregates: %d\n", result.AggregatesCreated)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	if result.EntitiesSucceeded == 0 {
		os.Exit(1)
	}
}

// allStores holds all storage implementations.
type allStores struct {
	entityStore        storage.EntityStore
	observationStore   storage.ObservationStore
	forecastRunStore   storage.ForecastRunStore
	forecastPointStore storage.ForecastPointStore
	combinedPointStore storage.CombinedPointStore
	runAggregateStore  storage.RunAggregateStore
}

// createStores creates all required stores, applying migrations in
// database mode.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			entityStore:        memory.NewEntityStore(),
			observationStore:   memory.NewObservationStore(),
			forecastRunStore:   memory.NewForecastRunStore(),
			forecastPointStore: memory.NewForecastPointStore(),
			combinedPointStore: memory.NewCombinedPointStore(),
			runAggregateStore:  memory.NewRunAggregateStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		// PostgreSQL stores (registry + observations + run metadata)
		entityStore:      pgstore.NewEntityStore(pool),
		observationStore: pgstore.NewObservationStore(pool),
		forecastRunStore: pgstore.NewForecastRunStore(pool),

		// ClickHouse stores (analytics)
		forecastPointStore: chstore.NewForecastPointStore(chConn),
		combinedPointStore: chstore.NewCombinedPointStore(chConn),
		runAggregateStore:  chstore.NewRunAggregateStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
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
