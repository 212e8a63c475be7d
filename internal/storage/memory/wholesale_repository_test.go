package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func sampleWholesalerOrder(id string, createdAt time.Time) domain.WholesalerOrder {
	return domain.WholesalerOrder{
		ID:            id,
		OrderNumber:   "WO-" + id,
		RetailerID:    "retailer-1",
		WholesalerID:  "wholesaler-1",
		Status:        domain.WholesaleStatusPending,
		PaymentStatus: domain.WholesalePaymentStatusPending,
		AmountMinor:   900,
		PaymentDueDate: createdAt.Add(30 * 24 * time.Hour),
		Items: []domain.WholesaleItem{
			{ID: "wi-1", ProductID: "sku-1", Qty: 20, UnitPriceMinor: 45, SubtotalMinor: 900, CreatedAt: createdAt},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestWholesaleRepository_CreateGetSave(t *testing.T) {
	repo := NewWholesalerOrderRepository()
	order := sampleWholesalerOrder("wo1", time.Now().UTC())

	if err := repo.Create(order); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("duplicate create: %v", err)
	}

	got, err := repo.Get("wo1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	got.Status = domain.WholesaleStatusConfirmed
	got.AppendHistory(domain.WholesaleStatusConfirmed, "", time.Now().UTC())
	if err := repo.Save(got); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Повторный Save той же копии — конфликт версий.
	if err := repo.Save(got); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	reloaded, _ := repo.Get("wo1")
	if reloaded.Status != domain.WholesaleStatusConfirmed || len(reloaded.History) != 1 {
		t.Fatalf("unexpected reloaded order: %+v", reloaded)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrWholesaleOrderNotFound) {
		t.Fatalf("expected ErrWholesaleOrderNotFound, got %v", err)
	}
}

func TestWholesaleRepository_Lists(t *testing.T) {
	repo := NewWholesalerOrderRepository()
	base := time.Now().UTC()

	for i, id := range []string{"wo1", "wo2"} {
		order := sampleWholesalerOrder(id, base.Add(time.Duration(i)*time.Second))
		if err := repo.Create(order); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	foreign := sampleWholesalerOrder("wo3", base)
	foreign.RetailerID = "retailer-2"
	foreign.WholesalerID = "wholesaler-2"
	if err := repo.Create(foreign); err != nil {
		t.Fatalf("create foreign: %v", err)
	}

	byRetailer, err := repo.ListByRetailer("retailer-1", 0)
	if err != nil {
		t.Fatalf("list by retailer: %v", err)
	}
	if len(byRetailer) != 2 || byRetailer[0].ID != "wo2" {
		t.Fatalf("unexpected retailer list: %+v", byRetailer)
	}

	byWholesaler, err := repo.ListByWholesaler("wholesaler-2", 0)
	if err != nil {
		t.Fatalf("list by wholesaler: %v", err)
	}
	if len(byWholesaler) != 1 || byWholesaler[0].ID != "wo3" {
		t.Fatalf("unexpected wholesaler list: %+v", byWholesaler)
	}
}
