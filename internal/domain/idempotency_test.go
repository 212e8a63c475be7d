package domain

import "testing"

func TestIdempotencyStatusValid(t *testing.T) {
	tests := []struct {
		name   string
		status IdempotencyStatus
		want   bool
	}{
		{name: "processing", status: IdempotencyStatusProcessing, want: true},
		{name: "done", status: IdempotencyStatusDone, want: true},
		{name: "failed", status: IdempotencyStatusFailed, want: true},
		{name: "invalid", status: IdempotencyStatus("broken"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.status.Valid(); got != tc.want {
				t.Fatalf("status %q valid=%v, want %v", tc.status, got, tc.want)
			}
		})
	}
}

func TestIdempotencyStatusReplayable(t *testing.T) {
	tests := []struct {
		name   string
		status IdempotencyStatus
		want   bool
	}{
		{name: "processing is not replayable", status: IdempotencyStatusProcessing, want: false},
		{name: "done is replayable", status: IdempotencyStatusDone, want: true},
		{name: "failed is replayable", status: IdempotencyStatusFailed, want: true},
		{name: "unknown is not replayable", status: IdempotencyStatus("broken"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.status.Replayable(); got != tc.want {
				t.Fatalf("status %q replayable=%v, want %v", tc.status, got, tc.want)
			}
		})
	}
}
