package model

import (
	"context"
	"testing"

	"ev-forecast-lab/internal/domain"
)

func TestNaiveModel_Predict(t *testing.T) {
	m := NewNaiveModel()
	ctx := context.Background()

	// y = lag1 + (lag1 - lag3) / 2
	got, err := m.Predict(ctx, domain.FeatureVector{Lag1: 16, Lag2: 14, Lag3: 12})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != 18.0 {
		t.Errorf("expected 18.0, got %v", got)
	}
}

func TestNaiveModel_Predict_FlatSeries(t *testing.T) {
	m := NewNaiveModel()
	ctx := context.Background()

	got, err := m.Predict(ctx, domain.FeatureVector{Lag1: 10, Lag2: 10, Lag3: 10})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != 10.0 {
		t.Errorf("expected flat series to stay at 10.0, got %v", got)
	}
}

func TestNaiveModel_Predict_DecliningSeries(t *testing.T) {
	m := NewNaiveModel()
	ctx := context.Background()

	// lag1=8, lag3=12: 8 + (8-12)/2 = 6
	got, err := m.Predict(ctx, domain.FeatureVector{Lag1: 8, Lag2: 10, Lag3: 12})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != 6.0 {
		t.Errorf("expected 6.0, got %v", got)
	}
}

func TestNaiveModel_ID(t *testing.T) {
	m := NewNaiveModel()
	if m.ID() != "naive" {
		t.Errorf("expected naive, got %s", m.ID())
	}
}
