package domain

// OrderRepository описывает требования к хранилищу клиентских заказов.
// Агрегат Order вместе с его sub-заказами читается и пишется как одна
// транзакционная единица.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным ограничением на количество.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу целиком с учётом optimistic locking.
	Save(order Order) error
}

// WholesalerOrderRepository описывает хранилище оптовых заказов.
type WholesalerOrderRepository interface {
	Create(order WholesalerOrder) error
	// Get возвращает заказ или ErrWholesaleOrderNotFound.
	Get(id string) (WholesalerOrder, error)
	ListByRetailer(retailerID string, limit int) ([]WholesalerOrder, error)
	ListByWholesaler(wholesalerID string, limit int) ([]WholesalerOrder, error)
	// Save применяет обновления с учётом optimistic locking.
	Save(order WholesalerOrder) error
}

// InventoryRepository описывает хранилище строк остатков. Мутации Reserve,
// Release, Commit, AddStock, RemoveStock и RestoreReserved обязаны выполняться
// как одиночные атомарные условные обновления строки (product, owner), а не
// как read-then-write на стороне приложения.
type InventoryRepository interface {
	// Get возвращает строку остатков или ErrInventoryNotFound.
	Get(productID, ownerID string) (Inventory, error)
	ListByOwner(ownerID string) ([]Inventory, error)
	// Create заводит новую строку остатков.
	Create(inv Inventory) error
	// Reserve увеличивает reservedStock на qty; падает с InsufficientStockError,
	// если current - reserved < qty.
	Reserve(productID, ownerID string, qty int32) error
	// Release уменьшает reservedStock на qty с защитным полом в ноль.
	Release(productID, ownerID string, qty int32) error
	// Commit списывает qty и из current, и из reserved: сток навсегда покидает
	// владельца. Падает, если результат нарушил бы инвариант.
	Commit(productID, ownerID string, qty int32) error
	// AddStock увеличивает currentStock существующей строки.
	AddStock(productID, ownerID string, qty int32) error
	// RemoveStock уменьшает currentStock, не трогая резерв; падает, если
	// после списания available стал бы отрицательным.
	RemoveStock(productID, ownerID string, qty int32) error
	// RestoreReserved — обратная операция к Commit: возвращает qty и в current,
	// и в reserved. Используется при компенсации неудавшегося переноса.
	RestoreReserved(productID, ownerID string, qty int32) error
}
