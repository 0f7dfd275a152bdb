package idhash

import (
	"testing"
)

func TestComputePointID(t *testing.T) {
	tests := []struct {
		name       string
		runID      string
		entityName string
		monthIndex int
		wantLen    int // hash length should be 64
	}{
		{
			name:       "basic point",
			runID:      "8fK2mPqWn3",
			entityName: "Kings",
			monthIndex: 24252,
			wantLen:    64,
		},
		{
			name:       "entity with spaces",
			runID:      "8fK2mPqWn3",
			entityName: "New York",
			monthIndex: 24253,
			wantLen:    64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePointID(tt.runID, tt.entityName, tt.monthIndex)

			if len(got) != tt.wantLen {
				t.Errorf("ComputePointID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputePointID(tt.runID, tt.entityName, tt.monthIndex)
			if got != got2 {
				t.Errorf("ComputePointID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputePointID_Uniqueness(t *testing.T) {
	base := ComputePointID("run-a", "Kings", 24252)

	variants := []string{
		ComputePointID("run-b", "Kings", 24252),
		ComputePointID("run-a", "Queens", 24252),
		ComputePointID("run-a", "Kings", 24253),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base point id %s", i, base)
		}
	}
}
