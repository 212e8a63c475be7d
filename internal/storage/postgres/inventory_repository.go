package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository создаёт PostgreSQL-реализацию InventoryRepository.
// Каждая мутация — одиночный условный UPDATE: инвариант строки проверяется
// предикатом WHERE и CHECK-констрейнтом, а не read-then-write в приложении.
func NewInventoryRepository(store *Store) domain.InventoryRepository {
	return &inventoryRepository{db: store.DB()}
}

func (r *inventoryRepository) Get(productID, ownerID string) (domain.Inventory, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, inventorySelect+` WHERE product_id = $1 AND owner_id = $2`,
		productID, ownerID)

	inv, err := scanInventory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Inventory{}, domain.ErrInventoryNotFound
		}
		return domain.Inventory{}, err
	}
	return inv, nil
}

func (r *inventoryRepository) ListByOwner(ownerID string) ([]domain.Inventory, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, inventorySelect+` WHERE owner_id = $1 ORDER BY product_id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Inventory, 0)
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory rows: %w", err)
	}

	return result, nil
}

func (r *inventoryRepository) Create(inv domain.Inventory) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

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

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory (
			id, product_id, owner_id, current_stock, reserved_stock, selling_price_minor,
			source_type, source_order_id, wholesaler_id, wholesale_price_paid_minor,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		inv.ID, inv.ProductID, inv.OwnerID, inv.CurrentStock, inv.ReservedStock,
		inv.SellingPriceMinor, string(inv.SourceType), inv.SourceOrderID,
		inv.WholesalerID, inv.WholesalePricePaidMinor, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert inventory row: %w", err)
	}

	return nil
}

// Reserve — атомарный compare-and-increment: предикат на available и инкремент
// резерва выполняются одним UPDATE.
func (r *inventoryRepository) Reserve(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory
		SET reserved_stock = reserved_stock + $3,
		    updated_at = NOW()
		WHERE product_id = $1
		  AND owner_id = $2
		  AND current_stock - reserved_stock >= $3
	`, productID, ownerID, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		inv, getErr := r.Get(productID, ownerID)
		if getErr != nil {
			return getErr
		}
		return &domain.InsufficientStockError{
			ProductID: productID,
			OwnerID:   ownerID,
			Requested: qty,
			Available: inv.AvailableStock(),
		}
	}

	return nil
}

// Release снимает резерв с защитным полом в ноль.
func (r *inventoryRepository) Release(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}
	return r.mutate(productID, ownerID, `
		UPDATE inventory
		SET reserved_stock = GREATEST(reserved_stock - $3, 0),
		    updated_at = NOW()
		WHERE product_id = $1 AND owner_id = $2
	`, qty, domain.ErrInventoryNotFound)
}

// Commit списывает qty из current и reserved; предикат не даёт нарушить инвариант.
func (r *inventoryRepository) Commit(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}
	return r.mutate(productID, ownerID, `
		UPDATE inventory
		SET current_stock = current_stock - $3,
		    reserved_stock = reserved_stock - $3,
		    updated_at = NOW()
		WHERE product_id = $1 AND owner_id = $2
		  AND reserved_stock >= $3 AND current_stock >= $3
	`, qty, domain.ErrStockInvariant)
}

func (r *inventoryRepository) AddStock(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}
	return r.mutate(productID, ownerID, `
		UPDATE inventory
		SET current_stock = current_stock + $3,
		    updated_at = NOW()
		WHERE product_id = $1 AND owner_id = $2
	`, qty, domain.ErrInventoryNotFound)
}

func (r *inventoryRepository) RemoveStock(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}
	return r.mutate(productID, ownerID, `
		UPDATE inventory
		SET current_stock = current_stock - $3,
		    updated_at = NOW()
		WHERE product_id = $1 AND owner_id = $2
		  AND current_stock - $3 >= reserved_stock
	`, qty, domain.ErrStockInvariant)
}

func (r *inventoryRepository) RestoreReserved(productID, ownerID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}
	return r.mutate(productID, ownerID, `
		UPDATE inventory
		SET current_stock = current_stock + $3,
		    reserved_stock = reserved_stock + $3,
		    updated_at = NOW()
		WHERE product_id = $1 AND owner_id = $2
	`, qty, domain.ErrInventoryNotFound)
}

// mutate выполняет условный UPDATE; при нуле затронутых строк различает
// отсутствующую строку и непройденный предикат.
func (r *inventoryRepository) mutate(productID, ownerID, query string, qty int32, predicateErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, productID, ownerID, qty)
	if err != nil {
		return fmt.Errorf("mutate inventory row: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := r.Get(productID, ownerID); getErr != nil {
			return getErr
		}
		return predicateErr
	}

	return nil
}

const inventorySelect = `
	SELECT id, product_id, owner_id, current_stock, reserved_stock, selling_price_minor,
	       source_type, source_order_id, wholesaler_id, wholesale_price_paid_minor,
	       created_at, updated_at
	FROM inventory`

func scanInventory(row rowScanner) (domain.Inventory, error) {
	var (
		inv        domain.Inventory
		sourceType string
	)
	if err := row.Scan(
		&inv.ID, &inv.ProductID, &inv.OwnerID, &inv.CurrentStock, &inv.ReservedStock,
		&inv.SellingPriceMinor, &sourceType, &inv.SourceOrderID, &inv.WholesalerID,
		&inv.WholesalePricePaidMinor, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Inventory{}, err
		}
		return domain.Inventory{}, fmt.Errorf("scan inventory row: %w", err)
	}
	inv.SourceType = domain.StockSourceType(sourceType)
	return inv, nil
}

var _ domain.InventoryRepository = (*inventoryRepository)(nil)
