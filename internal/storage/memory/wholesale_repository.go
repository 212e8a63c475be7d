package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// wholesaleRepositoryInMemory — in-memory реализация WholesalerOrderRepository.
type wholesaleRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.WholesalerOrder
}

// NewWholesalerOrderRepository возвращает in-memory репозиторий оптовых заказов.
func NewWholesalerOrderRepository() domain.WholesalerOrderRepository {
	return &wholesaleRepositoryInMemory{
		items: make(map[string]domain.WholesalerOrder),
	}
}

// Create сохраняет новый оптовый заказ, если ID ещё не занят.
func (r *wholesaleRepositoryInMemory) Create(order domain.WholesalerOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	r.items[order.ID] = cloneWholesalerOrder(order)
	return nil
}

// Get возвращает заказ или ErrWholesaleOrderNotFound.
func (r *wholesaleRepositoryInMemory) Get(id string) (domain.WholesalerOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.WholesalerOrder{}, domain.ErrWholesaleOrderNotFound
	}
	return cloneWholesalerOrder(order), nil
}

// ListByRetailer возвращает заказы ритейлера, свежие сверху.
func (r *wholesaleRepositoryInMemory) ListByRetailer(retailerID string, limit int) ([]domain.WholesalerOrder, error) {
	return r.list(func(o domain.WholesalerOrder) bool { return o.RetailerID == retailerID }, limit)
}

// ListByWholesaler возвращает заказы, адресованные оптовику.
func (r *wholesaleRepositoryInMemory) ListByWholesaler(wholesalerID string, limit int) ([]domain.WholesalerOrder, error) {
	return r.list(func(o domain.WholesalerOrder) bool { return o.WholesalerID == wholesalerID }, limit)
}

func (r *wholesaleRepositoryInMemory) list(match func(domain.WholesalerOrder) bool, limit int) ([]domain.WholesalerOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.WholesalerOrder, 0, len(r.items))
	for _, order := range r.items {
		if match(order) {
			result = append(result, cloneWholesalerOrder(order))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *wholesaleRepositoryInMemory) Save(order domain.WholesalerOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrWholesaleOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	order.Version++
	r.items[order.ID] = cloneWholesalerOrder(order)
	return nil
}

func cloneWholesalerOrder(src domain.WholesalerOrder) domain.WholesalerOrder {
	dst := src
	dst.Items = append([]domain.WholesaleItem(nil), src.Items...)
	dst.History = append([]domain.StatusChange(nil), src.History...)
	return dst
}

var _ domain.WholesalerOrderRepository = (*wholesaleRepositoryInMemory)(nil)
