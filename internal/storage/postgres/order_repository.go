package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
// Sub-заказы хранятся JSONB-колонкой внутри строки заказа: агрегат читается
// и пишется одной строкой, optimistic locking покрывает его целиком.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// subOrderRecord — persistence-форма sub-заказа для JSONB-колонки.
type subOrderRecord struct {
	RetailerID    string               `json:"retailer_id"`
	Items         []orderItemRecord    `json:"items"`
	Pricing       pricingRecord        `json:"pricing"`
	Status        string               `json:"status"`
	PaymentStatus string               `json:"payment_status"`
	History       []statusChangeRecord `json:"history,omitempty"`
}

type orderItemRecord struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	Qty            int32     `json:"qty"`
	ListPriceMinor int64     `json:"list_price_minor"`
	DiscountMinor  int64     `json:"discount_minor"`
	CreatedAt      time.Time `json:"created_at"`
}

type pricingRecord struct {
	SubtotalBeforeProductDiscountsMinor int64 `json:"subtotal_before_product_discounts_minor"`
	ProductDiscountSavingsMinor         int64 `json:"product_discount_savings_minor"`
	SubtotalAfterProductDiscountsMinor  int64 `json:"subtotal_after_product_discounts_minor"`
	TierCodeDiscountShareMinor          int64 `json:"tier_code_discount_share_minor"`
	TotalAmountMinor                    int64 `json:"total_amount_minor"`
}

type statusChangeRecord struct {
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	subOrders, err := encodeSubOrders(order.SubOrders)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, customer_id, sub_orders, amount_minor, delivery_address,
			discount_type, discount_code, discount_minor, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		order.ID, order.OrderNumber, order.CustomerID, subOrders, order.AmountMinor,
		order.DeliveryAddress, string(order.Discount.Type), order.Discount.Code,
		order.Discount.AmountMinor, order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer_id, sub_orders, amount_minor, delivery_address,
		       discount_type, discount_code, discount_minor, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, order_number, customer_id, sub_orders, amount_minor, delivery_address,
		       discount_type, discount_code, discount_minor, version, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", customerID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	subOrders, err := encodeSubOrders(order.SubOrders)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET sub_orders = $1,
		    amount_minor = $2,
		    delivery_address = $3,
		    version = version + 1,
		    updated_at = $4
		WHERE id = $5
		  AND version = $6
	`,
		subOrders, order.AmountMinor, order.DeliveryAddress,
		order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.orderExists(ctx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}

	return nil
}

func (r *orderRepository) orderExists(ctx context.Context, orderID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order        domain.Order
		subOrdersRaw []byte
		discountType string
	)
	if err := row.Scan(
		&order.ID, &order.OrderNumber, &order.CustomerID, &subOrdersRaw,
		&order.AmountMinor, &order.DeliveryAddress, &discountType,
		&order.Discount.Code, &order.Discount.AmountMinor,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("scan order row: %w", err)
	}
	order.Discount.Type = domain.DiscountType(discountType)

	subOrders, err := decodeSubOrders(subOrdersRaw)
	if err != nil {
		return domain.Order{}, err
	}
	order.SubOrders = subOrders

	return order, nil
}

func encodeSubOrders(subOrders []domain.SubOrder) ([]byte, error) {
	records := make([]subOrderRecord, 0, len(subOrders))
	for i := range subOrders {
		sub := &subOrders[i]
		items := make([]orderItemRecord, 0, len(sub.Items))
		for _, item := range sub.Items {
			items = append(items, orderItemRecord{
				ID:             item.ID,
				ProductID:      item.ProductID,
				Qty:            item.Qty,
				ListPriceMinor: item.ListPriceMinor,
				DiscountMinor:  item.DiscountMinor,
				CreatedAt:      item.CreatedAt,
			})
		}
		records = append(records, subOrderRecord{
			RetailerID: sub.RetailerID,
			Items:      items,
			Pricing: pricingRecord{
				SubtotalBeforeProductDiscountsMinor: sub.Pricing.SubtotalBeforeProductDiscountsMinor,
				ProductDiscountSavingsMinor:         sub.Pricing.ProductDiscountSavingsMinor,
				SubtotalAfterProductDiscountsMinor:  sub.Pricing.SubtotalAfterProductDiscountsMinor,
				TierCodeDiscountShareMinor:          sub.Pricing.TierCodeDiscountShareMinor,
				TotalAmountMinor:                    sub.Pricing.TotalAmountMinor,
			},
			Status:        string(sub.Status),
			PaymentStatus: string(sub.PaymentStatus),
			History:       encodeHistory(sub.History),
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode sub-orders: %w", err)
	}
	return data, nil
}

func decodeSubOrders(raw []byte) ([]domain.SubOrder, error) {
	var records []subOrderRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode sub-orders: %w", err)
	}

	subOrders := make([]domain.SubOrder, 0, len(records))
	for _, rec := range records {
		items := make([]domain.OrderItem, 0, len(rec.Items))
		for _, item := range rec.Items {
			items = append(items, domain.OrderItem{
				ID:             item.ID,
				ProductID:      item.ProductID,
				Qty:            item.Qty,
				ListPriceMinor: item.ListPriceMinor,
				DiscountMinor:  item.DiscountMinor,
				CreatedAt:      item.CreatedAt,
			})
		}
		subOrders = append(subOrders, domain.SubOrder{
			RetailerID: rec.RetailerID,
			Items:      items,
			Pricing: domain.PricingBreakdown{
				SubtotalBeforeProductDiscountsMinor: rec.Pricing.SubtotalBeforeProductDiscountsMinor,
				ProductDiscountSavingsMinor:         rec.Pricing.ProductDiscountSavingsMinor,
				SubtotalAfterProductDiscountsMinor:  rec.Pricing.SubtotalAfterProductDiscountsMinor,
				TierCodeDiscountShareMinor:          rec.Pricing.TierCodeDiscountShareMinor,
				TotalAmountMinor:                    rec.Pricing.TotalAmountMinor,
			},
			Status:        domain.SubOrderStatus(rec.Status),
			PaymentStatus: domain.OrderPaymentStatus(rec.PaymentStatus),
			History:       decodeHistory(rec.History),
		})
	}

	return subOrders, nil
}

func encodeHistory(history []domain.StatusChange) []statusChangeRecord {
	if len(history) == 0 {
		return nil
	}
	out := make([]statusChangeRecord, 0, len(history))
	for _, change := range history {
		out = append(out, statusChangeRecord{
			Status:     change.Status,
			Note:       change.Note,
			OccurredAt: change.OccurredAt,
		})
	}
	return out
}

func decodeHistory(records []statusChangeRecord) []domain.StatusChange {
	if len(records) == 0 {
		return nil
	}
	out := make([]domain.StatusChange, 0, len(records))
	for _, rec := range records {
		out = append(out, domain.StatusChange{
			Status:     rec.Status,
			Note:       rec.Note,
			OccurredAt: rec.OccurredAt,
		})
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
