package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// inventoryRepositoryInMemory держит строки остатков под одним мьютексом:
// каждая мутация — атомарное условное обновление, как и у SQL-реализации.
type inventoryRepositoryInMemory struct {
	mu   sync.RWMutex
	rows map[string]domain.Inventory
}

// NewInventoryRepository возвращает in-memory репозиторий остатков для
// локальной разработки и тестов.
func NewInventoryRepository() domain.InventoryRepository {
	return &inventoryRepositoryInMemory{
		rows: make(map[string]domain.Inventory),
	}
}

func rowKey(productID, ownerID string) string {
	return productID + "|" + ownerID
}

// Get возвращает строку остатков или ErrInventoryNotFound.
func (r *inventoryRepositoryInMemory) Get(productID, ownerID string) (domain.Inventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.rows[rowKey(productID, ownerID)]
	if !ok {
		return domain.Inventory{}, domain.ErrInventoryNotFound
	}
	return inv, nil
}

// ListByOwner возвращает все строки владельца, отсортированные по товару.
func (r *inventoryRepositoryInMemory) ListByOwner(ownerID string) ([]domain.Inventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Inventory, 0)
	for _, inv := range r.rows {
		if inv.OwnerID == ownerID {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ProductID < result[j].ProductID
	})
	return result, nil
}

// Create заводит новую строку (product, owner); дубликат — конфликт версий.
func (r *inventoryRepositoryInMemory) Create(inv domain.Inventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := rowKey(inv.ProductID, inv.OwnerID)
	if _, exists := r.rows[key]; exists {
		return domain.ErrOrderVersionConflict
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	if err := inv.CheckInvariant(); err != nil {
		return err
	}
	r.rows[key] = inv
	return nil
}

// Reserve — атомарный compare-and-increment: проверка доступного остатка и
// инкремент резерва происходят под одним лок-захватом.
func (r *inventoryRepositoryInMemory) Reserve(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := rowKey(productID, ownerID)
	inv, ok := r.rows[key]
	if !ok {
		return domain.ErrInventoryNotFound
	}
	if inv.AvailableStock() < qty {
		return &domain.InsufficientStockError{
			ProductID: productID,
			OwnerID:   ownerID,
			Requested: qty,
			Available: inv.AvailableStock(),
		}
	}
	inv.ReservedStock += qty
	inv.UpdatedAt = time.Now().UTC()
	r.rows[key] = inv
	return nil
}

// Release снимает резерв с защитным полом в ноль: повторный release не
// уводит резерв в минус.
func (r *inventoryRepositoryInMemory) Release(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := rowKey(productID, ownerID)
	inv, ok := r.rows[key]
	if !ok {
		return domain.ErrInventoryNotFound
	}
	inv.ReservedStock -= qty
	if inv.ReservedStock < 0 {
		inv.ReservedStock = 0
	}
	inv.UpdatedAt = time.Now().UTC()
	r.rows[key] = inv
	return nil
}

// Commit списывает qty из current и reserved; операция падает, если результат
// нарушил бы инвариант 0 <= reserved <= current.
func (r *inventoryRepositoryInMemory) Commit(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := rowKey(productID, ownerID)
	inv, ok := r.rows[key]
	if !ok {
		return domain.ErrInventoryNotFound
	}
	if inv.ReservedStock < qty || inv.CurrentStock < qty {
		return domain.ErrStockInvariant
	}
	inv.CurrentStock -= qty
	inv.ReservedStock -= qty
	inv.UpdatedAt = time.Now().UTC()
	r.rows[key] = inv
	return nil
}

// AddStock увеличивает физический остаток существующей строки.
func (r *inventoryRepositoryInMemory) AddStock(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := rowKey(productID, ownerID)
	inv, ok := r.rows[key]
	if !ok {
		return domain.ErrInventoryNotFound
	}
	inv.CurrentStock += qty
	inv.UpdatedAt = time.Now().UTC()
	r.rows[key] = inv
	return nil
}

// RemoveStock уменьшает физический остаток, не трогая резерв.
func (r *inventoryRepositoryInMemory) RemoveStock(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := rowKey(productID, ownerID)
	inv, ok := r.rows[key]
	if !ok {
		return domain.ErrInventoryNotFound
	}
	if inv.CurrentStock-qty < inv.ReservedStock {
		return domain.ErrStockInvariant
	}
	inv.CurrentStock -= qty
	inv.UpdatedAt = time.Now().UTC()
	r.rows[key] = inv
	return nil
}

// RestoreReserved возвращает qty в current и reserved — компенсация Commit.
func (r *inventoryRepositoryInMemory) RestoreReserved(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := rowKey(productID, ownerID)
	inv, ok := r.rows[key]
	if !ok {
		return domain.ErrInventoryNotFound
	}
	inv.CurrentStock += qty
	inv.ReservedStock += qty
	inv.UpdatedAt = time.Now().UTC()
	r.rows[key] = inv
	return nil
}

var _ domain.InventoryRepository = (*inventoryRepositoryInMemory)(nil)
