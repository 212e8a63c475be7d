package transfer

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
)

// Engine переносит сток от оптовика к ритейлеру при завершении оптового
// заказа. Перенос выполняется как staged-write протокол: строки применяются
// по одной, и при ошибке все уже применённые строки откатываются обратными
// операциями до возврата ошибки. Повторный вызов для уже завершённого заказа
// — no-op.
type Engine struct {
	inventory domain.InventoryRepository
	logger    *log.Entry
	metrics   *metrics.FulfillmentMetrics
}

// NewEngine создаёт движок переноса стока.
func NewEngine(inventory domain.InventoryRepository, logger *log.Entry, m *metrics.FulfillmentMetrics) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "transfer")
	}
	return &Engine{inventory: inventory, logger: logger, metrics: m}
}

// appliedLine — полностью применённая строка переноса, кандидат на откат.
type appliedLine struct {
	productID string
	qty       int32
}

// Transfer переносит все позиции заказа: Commit у оптовика, затем приход
// у ритейлера (инкремент существующей строки или создание новой со снимком
// закупочной цены и происхождения). Любая ошибка откатывает уже применённые
// строки: RemoveStock у ритейлера и RestoreReserved у оптовика.
func (e *Engine) Transfer(order *domain.WholesalerOrder) error {
	if order.Status == domain.WholesaleStatusCompleted {
		e.logger.WithField("order_id", order.ID).Debug("order already completed, skipping transfer")
		return nil
	}

	start := time.Now()
	var applied []appliedLine
	for _, item := range order.Items {
		if err := e.transferLine(order, item); err != nil {
			e.rollback(order, applied)
			if e.metrics != nil {
				e.metrics.RecordTransferFailed()
			}
			return err
		}
		applied = append(applied, appliedLine{productID: item.ProductID, qty: item.Qty})
	}

	if e.metrics != nil {
		e.metrics.RecordTransfer()
		e.metrics.RecordTransferDuration(time.Since(start))
	}
	e.logger.WithFields(log.Fields{
		"order_id":      order.ID,
		"wholesaler_id": order.WholesalerID,
		"retailer_id":   order.RetailerID,
		"lines":         len(order.Items),
	}).Info("stock transfer completed")
	return nil
}

func (e *Engine) transferLine(order *domain.WholesalerOrder, item domain.WholesaleItem) error {
	if err := e.inventory.Commit(item.ProductID, order.WholesalerID, item.Qty); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"product_id": item.ProductID,
		}).Error("commit wholesaler stock failed")
		return err
	}

	if err := e.creditRetailer(order, item); err != nil {
		// Строка применена наполовину: возвращаем списанное оптовику.
		if restoreErr := e.inventory.RestoreReserved(item.ProductID, order.WholesalerID, item.Qty); restoreErr != nil {
			e.logger.WithError(restoreErr).WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": item.ProductID,
			}).Error("restore wholesaler stock failed")
		}
		return err
	}
	return nil
}

// creditRetailer приходует qty у ритейлера: инкремент существующей строки
// либо новая строка с происхождением из оптового заказа.
func (e *Engine) creditRetailer(order *domain.WholesalerOrder, item domain.WholesaleItem) error {
	err := e.inventory.AddStock(item.ProductID, order.RetailerID, item.Qty)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrInventoryNotFound) {
		return err
	}

	return e.inventory.Create(domain.Inventory{
		ProductID:               item.ProductID,
		OwnerID:                 order.RetailerID,
		CurrentStock:            item.Qty,
		SellingPriceMinor:       item.UnitPriceMinor,
		SourceType:              domain.StockSourceB2BOrder,
		SourceOrderID:           order.ID,
		WholesalerID:            order.WholesalerID,
		WholesalePricePaidMinor: item.UnitPriceMinor,
	})
}

func (e *Engine) rollback(order *domain.WholesalerOrder, applied []appliedLine) {
	for _, line := range applied {
		if err := e.inventory.RemoveStock(line.productID, order.RetailerID, line.qty); err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": line.productID,
			}).Error("rollback retailer stock failed")
		}
		if err := e.inventory.RestoreReserved(line.productID, order.WholesalerID, line.qty); err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": line.productID,
			}).Error("rollback wholesaler stock failed")
		}
	}
}
