package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ev-forecast-lab/internal/domain"
)

func TestHTTPModel_Predict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("expected path /predict, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		// Column order is the fitted model's contract
		if len(req.Columns) != len(domain.FeatureNames) {
			t.Fatalf("expected %d columns, got %d", len(domain.FeatureNames), len(req.Columns))
		}
		for i, name := range domain.FeatureNames {
			if req.Columns[i] != name {
				t.Errorf("column %d: expected %s, got %s", i, name, req.Columns[i])
			}
		}

		if req.Features["ev_total_lag1"] != 16 {
			t.Errorf("expected ev_total_lag1 16, got %v", req.Features["ev_total_lag1"])
		}
		if req.Features["months_since_start"] != 24 {
			t.Errorf("expected months_since_start 24, got %v", req.Features["months_since_start"])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(predictResponse{Prediction: 17.5})
	}))
	defer server.Close()

	m := NewHTTPModel(server.URL)
	ctx := context.Background()

	got, err := m.Predict(ctx, domain.FeatureVector{
		MonthsSinceStart: 24,
		EntityCode:       2,
		Lag1:             16,
		Lag2:             14,
		Lag3:             12,
		RollingMean3:     14,
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != 17.5 {
		t.Errorf("expected 17.5, got %v", got)
	}
}

func TestHTTPModel_Predict_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	m := NewHTTPModel(server.URL)

	_, err := m.Predict(context.Background(), domain.FeatureVector{Lag1: 1})
	if err == nil {
		t.Fatal("expected error on HTTP 500, got nil")
	}
}

func TestHTTPModel_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("expected path /health, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthResponse{Status: "ok", Model: "rf-v2"})
	}))
	defer server.Close()

	m := NewHTTPModel(server.URL)
	if err := m.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestHTTPModel_Health_Unhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthResponse{Status: "loading"})
	}))
	defer server.Close()

	m := NewHTTPModel(server.URL)
	if err := m.Health(context.Background()); err == nil {
		t.Fatal("expected error for non-ok status, got nil")
	}
}

func TestHTTPModel_ID(t *testing.T) {
	m := NewHTTPModel("http://model.local:5000")
	if m.ID() != "http" {
		t.Errorf("expected http, got %s", m.ID())
	}

	named := NewHTTPModel("http://model.local:5000", WithID("rf-v2"))
	if named.ID() != "rf-v2" {
		t.Errorf("expected rf-v2, got %s", named.ID())
	}
}
