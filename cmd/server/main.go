// Package main provides the unified forecast service:
// - Forecast runs (scheduled): resolution → forecasting → persistence
// - Reporting (scheduled): FORECAST_REPORT.md, CSVs
// - HTTP API: health, metrics, status, run management
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"ev-forecast-lab/internal/config"
	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/model"
	"ev-forecast-lab/internal/observability"
	"ev-forecast-lab/internal/orchestrator"
	"ev-forecast-lab/internal/pipeline"
	"ev-forecast-lab/internal/storage"
	chstore "ev-forecast-lab/internal/storage/clickhouse"
	"ev-forecast-lab/internal/storage/memory"
	"ev-forecast-lab/internal/storage/migrations"
	pgstore "ev-forecast-lab/internal/storage/postgres"
)

// errRunInProgress reports a trigger while a forecast run is active.
var errRunInProgress = errors.New("forecast run already in progress")

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	postgresDSN    string
	clickhouseDSN  string
	useMemory      bool
	outputDir      string
	runInterval    time.Duration
	reportInterval time.Duration
	horizon        int
	workers        int
	entities       []string

	// Components
	stores *allStores
	model  model.Model
	logger *log.Logger

	// baseCtx scopes API-triggered runs: a dropped client must not
	// abort a run halfway through persistence.
	baseCtx context.Context

	// State
	mu            sync.Mutex
	started       time.Time
	lastRun       time.Time
	lastRunID     string
	lastReportRun time.Time
	runActive     bool
	reportActive  bool

	// Stats
	forecastRuns int
	reportRuns   int
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

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage seeded with fixture data")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	runInterval := flag.Duration("run-interval", 24*time.Hour, "Forecast run interval")
	reportInterval := flag.Duration("report-interval", 24*time.Hour, "Report generation interval")
	horizon := flag.Int("horizon", config.DefaultHorizon, "Forecast horizon in months")
	workers := flag.Int("workers", config.DefaultWorkers, "Concurrent entity forecasts")
	entities := flag.String("entities", "", "Comma-separated entity names (empty = all registered)")
	modelKind := flag.String("model", domain.ModelKindNaive, "Model kind: naive, http")
	modelEndpoint := flag.String("model-endpoint", os.Getenv("MODEL_ENDPOINT"), "HTTP model service base URL")
	modelTimeoutMs := flag.Int64("model-timeout-ms", 0, "HTTP model call timeout (ms, 0 = client default)")
	httpAddr := flag.String("http-addr", ":8080", "HTTP listen address (health, metrics, status, API)")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	if *horizon < 1 {
		logger.Fatalf("--horizon must be at least 1, got %d", *horizon)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Memory mode starts empty: seed the fixture dataset so scheduled
	// runs have something to forecast
	if *useMemory {
		if err := pipeline.LoadFixtures(ctx, stores.entityStore, stores.observationStore); err != nil {
			logger.Fatalf("Failed to seed fixtures: %v", err)
		}
		logger.Printf("Seeded in-memory stores with fixture data (%d entities)", len(pipeline.FixtureEntityNames()))
	}

	// Create model
	m, err := model.FromConfig(domain.ModelConfig{
		Kind:      *modelKind,
		Endpoint:  *modelEndpoint,
		TimeoutMs: *modelTimeoutMs,
	})
	if err != nil {
		logger.Fatalf("Failed to create model: %v", err)
	}
	logger.Printf("Forecasting with model %s (horizon %d)", m.ID(), *horizon)

	// Create server
	server := &Server{
		postgresDSN:    *postgresDSN,
		clickhouseDSN:  *clickhouseDSN,
		useMemory:      *useMemory,
		outputDir:      *outputDir,
		runInterval:    *runInterval,
		reportInterval: *reportInterval,
		horizon:        *horizon,
		workers:        *workers,
		entities:       splitList(*entities),
		stores:         stores,
		model:          m,
		logger:         logger,
		baseCtx:        ctx,
		started:        time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*httpAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
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

// Run starts the scheduled components.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified forecast service...")

	// Create error channel for goroutines
	errCh := make(chan error, 2)

	// Start forecast scheduler in background
	go func() {
		err := s.runForecastScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("forecast scheduler: %w", err)
		}
	}()

	// Start report scheduler in background
	go func() {
		err := s.runReportScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("report scheduler: %w", err)
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runForecastScheduler runs forecast runs on schedule.
func (s *Server) runForecastScheduler(ctx context.Context) error {
	s.logger.Printf("Starting forecast scheduler (interval: %v)...", s.runInterval)

	// Run immediately on start
	s.runForecast(ctx)

	ticker := time.NewTicker(s.runInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runForecast(ctx)
		}
	}
}

// runForecast is the scheduler wrapper around triggerRun.
func (s *Server) runForecast(ctx context.Context) {
	if _, err := s.triggerRun(ctx); err != nil {
		if errors.Is(err, errRunInProgress) {
			s.logger.Println("Forecast run already running, skipping...")
			return
		}
		s.logger.Printf("Forecast run error: %v", err)
	}
}

// triggerRun executes one forecast run unless one is already active.
func (s *Server) triggerRun(ctx context.Context) (*orchestrator.RunResult, error) {
	s.mu.Lock()
	if s.runActive {
		s.mu.Unlock()
		return nil, errRunInProgress
	}
	s.runActive = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.runActive = false
		s.lastRun = time.Now()
		s.forecastRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Running forecast...")
	start := time.Now()

	orch := orchestrator.New(orchestrator.Options{
		EntityStore:        s.stores.entityStore,
		ObservationStore:   s.stores.observationStore,
		ForecastRunStore:   s.stores.forecastRunStore,
		ForecastPointStore: s.stores.forecastPointStore,
		CombinedPointStore: s.stores.combinedPointStore,
		RunAggregateStore:  s.stores.runAggregateStore,
		Model:              s.model,
		Horizon:            s.horizon,
		Workers:            s.workers,
		Entities:           s.entities,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		observability.RecordForecastRun("error", time.Since(start).Seconds(), 0, 0, 0)
		return nil, err
	}

	s.mu.Lock()
	s.lastRunID = result.RunID
	s.mu.Unlock()

	s.logger.Printf("Forecast run %s completed in %v: %d/%d entities, %d forecast points",
		result.RunID, time.Since(start), result.EntitiesSucceeded, result.EntitiesRequested, result.ForecastPoints)

	observability.RecordForecastRun("success", time.Since(start).Seconds(),
		result.EntitiesSucceeded, result.EntitiesFailed, result.ForecastPoints)
	observability.MarkSuccessfulRun(float64(time.Now().Unix()))

	return result, nil
}

// runReportScheduler runs report generation on schedule.
func (s *Server) runReportScheduler(ctx context.Context) error {
	s.logger.Printf("Starting report scheduler (interval: %v)...", s.reportInterval)

	// Give the first forecast run a head start
	time.Sleep(1 * time.Minute)

	// Run immediately after the first forecast
	s.runReport(ctx)

	ticker := time.NewTicker(s.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runReport(ctx)
		}
	}
}

// runReport generates reports for the most recent run.
func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	if s.reportActive {
		s.mu.Unlock()
		s.logger.Println("Report generation already running, skipping...")
		return
	}
	// Wait for an active forecast run to finish
	if s.runActive {
		s.mu.Unlock()
		s.logger.Println("Forecast run active, waiting before report generation...")
		time.Sleep(30 * time.Second)
		s.mu.Lock()
	}
	s.reportActive = true
	runID := s.lastRunID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reportActive = false
		s.lastReportRun = time.Now()
		s.reportRuns++
		s.mu.Unlock()
	}()

	// Fall back to the latest stored run (e.g. after a restart)
	if runID == "" {
		runs, err := s.stores.forecastRunStore.List(ctx)
		if err != nil {
			s.logger.Printf("Report generation error: list runs: %v", err)
			return
		}
		if len(runs) == 0 {
			s.logger.Println("No forecast runs stored yet, skipping report")
			return
		}
		runID = runs[0].RunID
	}

	s.logger.Printf("Generating reports for run %s...", runID)
	start := time.Now()

	p := pipeline.NewReportPipeline(
		s.stores.forecastRunStore,
		s.stores.entityStore,
		s.stores.observationStore,
		s.stores.runAggregateStore,
		s.stores.combinedPointStore,
		s.outputDir,
	).WithSufficiencyChecker(
		pipeline.NewSufficiencyChecker(s.stores.entityStore, s.stores.observationStore),
	)

	if err := p.Run(ctx, runID); err != nil {
		s.logger.Printf("Report generation error: %v", err)
		return
	}

	observability.RecordReportGenerated()
	s.logger.Printf("Reports generated in %v to %s/", time.Since(start), s.outputDir)
}

// startHTTPServer starts the HTTP server for health/metrics/status/API.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Run management API
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRunByID)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	Model         string    `json:"model"`
	Horizon       int       `json:"horizon"`
	LastRun       time.Time `json:"last_run,omitempty"`
	LastRunID     string    `json:"last_run_id,omitempty"`
	LastReportRun time.Time `json:"last_report_run,omitempty"`
	ForecastRuns  int       `json:"forecast_runs"`
	ReportRuns    int       `json:"report_runs"`
	RunActive     bool      `json:"run_active"`
	ReportActive  bool      `json:"report_active"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		Model:         s.model.ID(),
		Horizon:       s.horizon,
		LastRun:       s.lastRun,
		LastRunID:     s.lastRunID,
		LastReportRun: s.lastReportRun,
		ForecastRuns:  s.forecastRuns,
		ReportRuns:    s.reportRuns,
		RunActive:     s.runActive,
		ReportActive:  s.reportActive,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleRuns lists stored runs (GET) or triggers a new one (POST).
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		runs, err := s.stores.forecastRunStore.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(runs)

	case http.MethodPost:
		result, err := s.triggerRun(s.baseCtx)
		if err != nil {
			if errors.Is(err, errRunInProgress) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRunByID returns one stored run as JSON.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if runID == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}

	run, err := s.stores.forecastRunStore.GetByID(r.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
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
