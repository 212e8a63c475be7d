package domain

import (
	"errors"
	"testing"
)

func TestIsVersionConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "version conflict error", err: ErrOrderVersionConflict, want: true},
		{name: "wrapped version conflict error", err: errors.Join(ErrOrderVersionConflict, errors.New("additional context")), want: true},
		{name: "other error", err: ErrOrderNotFound, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVersionConflict(tt.err); got != tt.want {
				t.Errorf("IsVersionConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "order", err: ErrOrderNotFound, want: true},
		{name: "sub-order", err: ErrSubOrderNotFound, want: true},
		{name: "wholesale order", err: ErrWholesaleOrderNotFound, want: true},
		{name: "inventory", err: ErrInventoryNotFound, want: true},
		{name: "wrapped", err: errors.Join(ErrInventoryNotFound, errors.New("ctx")), want: true},
		{name: "unrelated", err: ErrInvalidStateTransition, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInsufficientStockError(t *testing.T) {
	err := &InsufficientStockError{
		ProductID: "sku-1",
		OwnerID:   "wholesaler-1",
		Requested: 50,
		Available: 20,
	}

	if !errors.Is(err, ErrInsufficientStock) {
		t.Error("InsufficientStockError must match ErrInsufficientStock")
	}
	if !IsInsufficientStock(err) {
		t.Error("IsInsufficientStock must report true")
	}

	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}

	var typed *InsufficientStockError
	if !errors.As(err, &typed) {
		t.Fatal("errors.As must extract the typed error")
	}
	if typed.Available != 20 || typed.Requested != 50 {
		t.Fatalf("unexpected fields: %+v", typed)
	}
}

func TestIsInvalidTransition(t *testing.T) {
	if !IsInvalidTransition(ErrInvalidStateTransition) {
		t.Error("expected true for ErrInvalidStateTransition")
	}
	if IsInvalidTransition(ErrAlreadyPaid) {
		t.Error("expected false for unrelated error")
	}
}

func TestIsIdempotencyConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "idempotency already exists", err: ErrIdempotencyKeyAlreadyExists, want: true},
		{name: "idempotency hash mismatch", err: ErrIdempotencyHashMismatch, want: true},
		{name: "wrapped idempotency conflict", err: errors.Join(ErrIdempotencyHashMismatch, errors.New("extra context")), want: true},
		{name: "non idempotency error", err: ErrOrderVersionConflict, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIdempotencyConflict(tt.err); got != tt.want {
				t.Errorf("IsIdempotencyConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}
