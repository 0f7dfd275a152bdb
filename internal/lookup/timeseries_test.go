package lookup

import (
	"testing"

	"ev-forecast-lab/internal/domain"
)

func TestValueAt_EmptySlice(t *testing.T) {
	_, err := ValueAt(100, nil)
	if err != ErrNoSeriesData {
		t.Errorf("expected ErrNoSeriesData, got %v", err)
	}

	_, err = ValueAt(100, []domain.SeriesPoint{})
	if err != ErrNoSeriesData {
		t.Errorf("expected ErrNoSeriesData, got %v", err)
	}
}

func TestValueAt_ExactMatch(t *testing.T) {
	points := []domain.SeriesPoint{
		{MonthIndex: 100, Value: 1.0},
		{MonthIndex: 101, Value: 2.0},
		{MonthIndex: 102, Value: 3.0},
	}

	v, err := ValueAt(101, points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2.0 {
		t.Errorf("expected 2.0, got %f", v)
	}
}

func TestValueAt_GapBeforeTarget(t *testing.T) {
	points := []domain.SeriesPoint{
		{MonthIndex: 100, Value: 1.0},
		{MonthIndex: 102, Value: 2.0},
		{MonthIndex: 105, Value: 3.0},
	}

	// Target 104 should return the value at 102
	v, err := ValueAt(104, points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2.0 {
		t.Errorf("expected 2.0, got %f", v)
	}
}

func TestValueAt_BeforeFirst(t *testing.T) {
	points := []domain.SeriesPoint{
		{MonthIndex: 100, Value: 1.0},
		{MonthIndex: 101, Value: 2.0},
	}

	// Target 90 precedes the series, should return first value
	v, err := ValueAt(90, points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1.0 {
		t.Errorf("expected 1.0, got %f", v)
	}
}

func TestValueAt_AfterLast(t *testing.T) {
	points := []domain.SeriesPoint{
		{MonthIndex: 100, Value: 1.0},
		{MonthIndex: 101, Value: 2.0},
	}

	// Target 200 should return last value
	v, err := ValueAt(200, points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2.0 {
		t.Errorf("expected 2.0, got %f", v)
	}
}

func TestPointAt_ReturnsObservation(t *testing.T) {
	points := []domain.SeriesPoint{
		{EntityName: "Kings", MonthIndex: 100, Value: 1.0},
		{EntityName: "Kings", MonthIndex: 101, Value: 2.0},
	}

	p, err := PointAt(101, points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.EntityName != "Kings" || p.MonthIndex != 101 {
		t.Errorf("unexpected point: %+v", p)
	}
}

func TestSplitTail(t *testing.T) {
	points := []domain.SeriesPoint{
		{MonthIndex: 1}, {MonthIndex: 2}, {MonthIndex: 3}, {MonthIndex: 4}, {MonthIndex: 5},
	}

	head, tail := SplitTail(points, 2)
	if len(head) != 3 || len(tail) != 2 {
		t.Fatalf("split lengths: got (%d, %d), want (3, 2)", len(head), len(tail))
	}
	if head[2].MonthIndex != 3 {
		t.Errorf("head ends at %d, want 3", head[2].MonthIndex)
	}
	if tail[0].MonthIndex != 4 {
		t.Errorf("tail starts at %d, want 4", tail[0].MonthIndex)
	}
}

func TestSplitTail_Degenerate(t *testing.T) {
	points := []domain.SeriesPoint{{MonthIndex: 1}, {MonthIndex: 2}}

	head, tail := SplitTail(points, 0)
	if len(head) != 2 || tail != nil {
		t.Errorf("k=0: got (%d, %d), want (2, 0)", len(head), len(tail))
	}

	head, tail = SplitTail(points, 5)
	if head != nil || len(tail) != 2 {
		t.Errorf("k>len: got (%d, %d), want (0, 2)", len(head), len(tail))
	}
}
