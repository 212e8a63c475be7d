package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type wholesaleRepository struct {
	db *sql.DB
}

// NewWholesalerOrderRepository создаёт PostgreSQL-реализацию
// WholesalerOrderRepository. Позиции и история хранятся JSONB-колонками.
func NewWholesalerOrderRepository(store *Store) domain.WholesalerOrderRepository {
	return &wholesaleRepository{db: store.DB()}
}

type wholesaleItemRecord struct {
	ID                    string    `json:"id"`
	ProductID             string    `json:"product_id"`
	Qty                   int32     `json:"qty"`
	UnitPriceMinor        int64     `json:"unit_price_minor"`
	VolumeDiscountPercent int32     `json:"volume_discount_percent"`
	SubtotalMinor         int64     `json:"subtotal_minor"`
	CreatedAt             time.Time `json:"created_at"`
}

func (r *wholesaleRepository) Create(order domain.WholesalerOrder) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	items, history, err := encodeWholesaleParts(&order)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO wholesale_orders (
			id, order_number, retailer_id, wholesaler_id, items, status, payment_status,
			amount_minor, payment_due_date, history, invoice_url, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		order.ID, order.OrderNumber, order.RetailerID, order.WholesalerID, items,
		string(order.Status), string(order.PaymentStatus), order.AmountMinor,
		order.PaymentDueDate, history, order.InvoiceURL, order.Version,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert wholesale order: %w", err)
	}

	return nil
}

func (r *wholesaleRepository) Get(id string) (domain.WholesalerOrder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, wholesaleSelect+` WHERE id = $1`, id)

	order, err := scanWholesaleOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WholesalerOrder{}, domain.ErrWholesaleOrderNotFound
		}
		return domain.WholesalerOrder{}, err
	}
	return order, nil
}

func (r *wholesaleRepository) ListByRetailer(retailerID string, limit int) ([]domain.WholesalerOrder, error) {
	return r.list("retailer_id", retailerID, limit)
}

func (r *wholesaleRepository) ListByWholesaler(wholesalerID string, limit int) ([]domain.WholesalerOrder, error) {
	return r.list("wholesaler_id", wholesalerID, limit)
}

func (r *wholesaleRepository) Save(order domain.WholesalerOrder) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	items, history, err := encodeWholesaleParts(&order)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE wholesale_orders
		SET items = $1,
		    status = $2,
		    payment_status = $3,
		    amount_minor = $4,
		    history = $5,
		    invoice_url = $6,
		    version = version + 1,
		    updated_at = $7
		WHERE id = $8
		  AND version = $9
	`,
		items, string(order.Status), string(order.PaymentStatus), order.AmountMinor,
		history, order.InvoiceURL, order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update wholesale order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var id string
		err := r.db.QueryRowContext(ctx, `SELECT id FROM wholesale_orders WHERE id = $1`, order.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrWholesaleOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("check wholesale order exists: %w", err)
		}
		return domain.ErrOrderVersionConflict
	}

	return nil
}

const wholesaleSelect = `
	SELECT id, order_number, retailer_id, wholesaler_id, items, status, payment_status,
	       amount_minor, payment_due_date, history, invoice_url, version, created_at, updated_at
	FROM wholesale_orders`

func (r *wholesaleRepository) list(column, value string, limit int) ([]domain.WholesalerOrder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := wholesaleSelect + ` WHERE ` + column + ` = $1 ORDER BY created_at DESC, id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", value, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, value)
	}
	if err != nil {
		return nil, fmt.Errorf("list wholesale orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.WholesalerOrder, 0)
	for rows.Next() {
		order, err := scanWholesaleOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wholesale order rows: %w", err)
	}

	return orders, nil
}

func scanWholesaleOrder(row rowScanner) (domain.WholesalerOrder, error) {
	var (
		order         domain.WholesalerOrder
		itemsRaw      []byte
		historyRaw    []byte
		status        string
		paymentStatus string
	)
	if err := row.Scan(
		&order.ID, &order.OrderNumber, &order.RetailerID, &order.WholesalerID,
		&itemsRaw, &status, &paymentStatus, &order.AmountMinor, &order.PaymentDueDate,
		&historyRaw, &order.InvoiceURL, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WholesalerOrder{}, err
		}
		return domain.WholesalerOrder{}, fmt.Errorf("scan wholesale order row: %w", err)
	}
	order.Status = domain.WholesaleStatus(status)
	order.PaymentStatus = domain.WholesalePaymentStatus(paymentStatus)

	var itemRecords []wholesaleItemRecord
	if err := json.Unmarshal(itemsRaw, &itemRecords); err != nil {
		return domain.WholesalerOrder{}, fmt.Errorf("decode wholesale items: %w", err)
	}
	for _, rec := range itemRecords {
		order.Items = append(order.Items, domain.WholesaleItem{
			ID:                    rec.ID,
			ProductID:             rec.ProductID,
			Qty:                   rec.Qty,
			UnitPriceMinor:        rec.UnitPriceMinor,
			VolumeDiscountPercent: rec.VolumeDiscountPercent,
			SubtotalMinor:         rec.SubtotalMinor,
			CreatedAt:             rec.CreatedAt,
		})
	}

	var historyRecords []statusChangeRecord
	if err := json.Unmarshal(historyRaw, &historyRecords); err != nil {
		return domain.WholesalerOrder{}, fmt.Errorf("decode wholesale history: %w", err)
	}
	order.History = decodeHistory(historyRecords)

	return order, nil
}

func encodeWholesaleParts(order *domain.WholesalerOrder) (items, history []byte, err error) {
	itemRecords := make([]wholesaleItemRecord, 0, len(order.Items))
	for _, item := range order.Items {
		itemRecords = append(itemRecords, wholesaleItemRecord{
			ID:                    item.ID,
			ProductID:             item.ProductID,
			Qty:                   item.Qty,
			UnitPriceMinor:        item.UnitPriceMinor,
			VolumeDiscountPercent: item.VolumeDiscountPercent,
			SubtotalMinor:         item.SubtotalMinor,
			CreatedAt:             item.CreatedAt,
		})
	}
	items, err = json.Marshal(itemRecords)
	if err != nil {
		return nil, nil, fmt.Errorf("encode wholesale items: %w", err)
	}

	historyRecords := encodeHistory(order.History)
	if historyRecords == nil {
		historyRecords = []statusChangeRecord{}
	}
	history, err = json.Marshal(historyRecords)
	if err != nil {
		return nil, nil, fmt.Errorf("encode wholesale history: %w", err)
	}

	return items, history, nil
}

var _ domain.WholesalerOrderRepository = (*wholesaleRepository)(nil)
