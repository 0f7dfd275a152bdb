// Package main provides the registry seeding entry point.
// Loads entities and monthly observations into PostgreSQL, either from
// the built-in fixture dataset or from a scenario YAML file.
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

	"gopkg.in/yaml.v3"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/pipeline"
	"ev-forecast-lab/internal/storage"
	"ev-forecast-lab/internal/storage/migrations"
	pgstore "ev-forecast-lab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	fixtures := flag.Bool("fixtures", false, "Load the built-in fixture dataset")
	scenarioPath := flag.String("scenario", "", "Path to a scenario YAML file")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[seed] ", log.LstdFlags)

	// Validate required flags
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	if !*fixtures && *scenarioPath == "" {
		logger.Fatal("one of --fixtures or --scenario is required")
	}
	if *fixtures && *scenarioPath != "" {
		logger.Fatal("--fixtures and --scenario are mutually exclusive")
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

	// Connect and migrate
	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("postgres migrations: %v", err)
	}

	entityStore := pgstore.NewEntityStore(pool)
	obsStore := pgstore.NewObservationStore(pool)

	// Load data
	if *fixtures {
		if err := pipeline.LoadFixtures(ctx, entityStore, obsStore); err != nil {
			logger.Fatalf("load fixtures: %v", err)
		}
		names := pipeline.FixtureEntityNames()
		fmt.Printf("Seeded fixture dataset: %d entities (%s)\n", len(names), strings.Join(names, ", "))
		return
	}

	entities, observations, err := loadScenario(ctx, *scenarioPath, entityStore, obsStore)
	if err != nil {
		logger.Fatalf("load scenario: %v", err)
	}
	fmt.Printf("Seeded scenario %s: %d entities, %d observations\n", *scenarioPath, entities, observations)
}

// scenarioFile is the YAML layout accepted by --scenario.
type scenarioFile struct {
	Entities []scenarioEntity `yaml:"entities"`
}

type scenarioEntity struct {
	Name         string        `yaml:"name"`
	Code         int           `yaml:"code"`
	Observations []scenarioObs `yaml:"observations"`
}

type scenarioObs struct {
	Month string  `yaml:"month"` // calendar month as YYYY-MM
	Value float64 `yaml:"value"`
}

// loadScenario parses the scenario file and inserts its entities and
// observations. Returns the inserted counts.
func loadScenario(
	ctx context.Context,
	path string,
	entityStore storage.EntityStore,
	obsStore storage.ObservationStore,
) (int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}

	var scenario scenarioFile
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return 0, 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Entities) == 0 {
		return 0, 0, fmt.Errorf("%s contains no entities", path)
	}

	var points []*domain.SeriesPoint
	for _, e := range scenario.Entities {
		if e.Name == "" {
			return 0, 0, fmt.Errorf("%s: entity with empty name", path)
		}
		if err := entityStore.Insert(ctx, &domain.Entity{Name: e.Name, Code: e.Code}); err != nil {
			return 0, 0, fmt.Errorf("insert entity %s: %w", e.Name, err)
		}

		for _, obs := range e.Observations {
			monthIndex, err := parseMonth(obs.Month)
			if err != nil {
				return 0, 0, fmt.Errorf("entity %s: %w", e.Name, err)
			}
			points = append(points, &domain.SeriesPoint{
				EntityName: e.Name,
				MonthIndex: monthIndex,
				Value:      obs.Value,
				Source:     domain.SourceHistorical,
			})
		}
	}

	if err := obsStore.InsertBulk(ctx, points); err != nil {
		return 0, 0, fmt.Errorf("insert observations: %w", err)
	}
	return len(scenario.Entities), len(points), nil
}

// parseMonth converts a YYYY-MM string into a month index.
func parseMonth(s string) (int, error) {
	var year, month int
	if _, err := fmt.Sscanf(s, "%d-%d", &year, &month); err != nil {
		return 0, fmt.Errorf("invalid month %q: %w", s, err)
	}
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("invalid month %q: month must be 01-12", s)
	}
	return domain.MonthIndexOf(year, month), nil
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
