package postgres

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func TestInventoryRepository_PostgresReserveCommitRelease(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewInventoryRepository(store)

	if err := repo.Create(domain.Inventory{
		ProductID: "sku-1", OwnerID: "retailer-1",
		CurrentStock: 10, SellingPriceMinor: 200,
		SourceType: domain.StockSourceManual,
	}); err != nil {
		t.Fatalf("create inventory row: %v", err)
	}

	if err := repo.Reserve("sku-1", "retailer-1", 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// Переизбыточный резерв падает с типизированной ошибкой и деталями.
	err := repo.Reserve("sku-1", "retailer-1", 7)
	var insufficientErr *domain.InsufficientStockError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficientErr.Requested != 7 || insufficientErr.Available != 6 {
		t.Fatalf("unexpected error details: %+v", insufficientErr)
	}

	if err := repo.Commit("sku-1", "retailer-1", 3); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := repo.Release("sku-1", "retailer-1", 1); err != nil {
		t.Fatalf("release: %v", err)
	}

	row, err := repo.Get("sku-1", "retailer-1")
	if err != nil {
		t.Fatalf("get row: %v", err)
	}
	if row.CurrentStock != 7 || row.ReservedStock != 0 {
		t.Fatalf("unexpected row state: current=%d reserved=%d", row.CurrentStock, row.ReservedStock)
	}
}

func TestInventoryRepository_PostgresTransferPair(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewInventoryRepository(store)

	if err := repo.Create(domain.Inventory{
		ProductID: "sku-1", OwnerID: "wholesaler-1",
		CurrentStock: 100, ReservedStock: 20, SellingPriceMinor: 50,
		SourceType: domain.StockSourceManual,
	}); err != nil {
		t.Fatalf("create wholesaler row: %v", err)
	}

	// Commit у оптовика + строка-получатель с provenance у ритейлера.
	if err := repo.Commit("sku-1", "wholesaler-1", 20); err != nil {
		t.Fatalf("commit wholesaler: %v", err)
	}
	if err := repo.Create(domain.Inventory{
		ProductID: "sku-1", OwnerID: "retailer-1",
		CurrentStock: 20, SellingPriceMinor: 45,
		SourceType: domain.StockSourceB2BOrder, SourceOrderID: "wo-1",
		WholesalerID: "wholesaler-1", WholesalePricePaidMinor: 45,
	}); err != nil {
		t.Fatalf("create retailer row: %v", err)
	}

	rt, err := repo.Get("sku-1", "retailer-1")
	if err != nil {
		t.Fatalf("get retailer row: %v", err)
	}
	if rt.SourceType != domain.StockSourceB2BOrder || rt.SourceOrderID != "wo-1" {
		t.Fatalf("provenance lost: %+v", rt)
	}

	// RestoreReserved — компенсация Commit.
	if err := repo.RestoreReserved("sku-1", "wholesaler-1", 20); err != nil {
		t.Fatalf("restore reserved: %v", err)
	}
	wh, err := repo.Get("sku-1", "wholesaler-1")
	if err != nil {
		t.Fatalf("get wholesaler row: %v", err)
	}
	if wh.CurrentStock != 100 || wh.ReservedStock != 20 {
		t.Fatalf("unexpected state after restore: current=%d reserved=%d", wh.CurrentStock, wh.ReservedStock)
	}
}

func TestInventoryRepository_PostgresGuards(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewInventoryRepository(store)

	if err := repo.Reserve("ghost", "nobody", 1); !errors.Is(err, domain.ErrInventoryNotFound) {
		t.Fatalf("expected ErrInventoryNotFound, got %v", err)
	}
	if err := repo.Reserve("sku-1", "retailer-1", 0); !errors.Is(err, domain.ErrItemQtyInvalid) {
		t.Fatalf("expected ErrItemQtyInvalid for zero qty, got %v", err)
	}

	if err := repo.Create(domain.Inventory{
		ProductID: "sku-1", OwnerID: "retailer-1",
		CurrentStock: 5, ReservedStock: 2, SellingPriceMinor: 100,
		SourceType: domain.StockSourceManual,
	}); err != nil {
		t.Fatalf("create row: %v", err)
	}

	// RemoveStock не может увести available в минус.
	if err := repo.RemoveStock("sku-1", "retailer-1", 4); !errors.Is(err, domain.ErrStockInvariant) {
		t.Fatalf("expected ErrStockInvariant, got %v", err)
	}
	// Commit сверх резерва запрещён.
	if err := repo.Commit("sku-1", "retailer-1", 3); !errors.Is(err, domain.ErrStockInvariant) {
		t.Fatalf("expected ErrStockInvariant on over-commit, got %v", err)
	}
	// Release с полом в ноль не падает.
	if err := repo.Release("sku-1", "retailer-1", 10); err != nil {
		t.Fatalf("release with floor: %v", err)
	}

	// Дубликат строки (product, owner) — конфликт.
	if err := repo.Create(domain.Inventory{
		ProductID: "sku-1", OwnerID: "retailer-1",
		CurrentStock: 1, SourceType: domain.StockSourceManual,
	}); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected conflict on duplicate row, got %v", err)
	}
}
