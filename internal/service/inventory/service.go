package inventory

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
)

// Line — одна позиция мультистрочной операции над остатками.
type Line struct {
	ProductID string
	Qty       int32
}

// Service — движок резервирования остатков. Делегирует атомарные условные
// обновления репозиторию и добавляет компенсацию для мультистрочных операций:
// если хотя бы одна строка не зарезервировалась, все уже сделанные резервы
// этой операции освобождаются до возврата ошибки.
type Service struct {
	repo    domain.InventoryRepository
	logger  *log.Entry
	metrics *metrics.FulfillmentMetrics
}

// NewService создаёт движок резервирования.
func NewService(repo domain.InventoryRepository, logger *log.Entry, m *metrics.FulfillmentMetrics) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "inventory")
	}
	return &Service{repo: repo, logger: logger, metrics: m}
}

// Reserve резервирует qty единиц товара у владельца.
func (s *Service) Reserve(productID, ownerID string, qty int32) error {
	if err := s.repo.Reserve(productID, ownerID, qty); err != nil {
		s.recordOp("insufficient")
		s.logger.WithError(err).WithFields(log.Fields{
			"product_id": productID,
			"owner_id":   ownerID,
			"qty":        qty,
		}).Warn("reserve failed")
		return err
	}
	s.recordOp("reserved")
	return nil
}

// Release освобождает qty единиц резерва.
func (s *Service) Release(productID, ownerID string, qty int32) error {
	if err := s.repo.Release(productID, ownerID, qty); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"product_id": productID,
			"owner_id":   ownerID,
			"qty":        qty,
		}).Warn("release failed")
		return err
	}
	s.recordOp("released")
	return nil
}

// Commit навсегда списывает qty единиц из остатков и резерва владельца.
func (s *Service) Commit(productID, ownerID string, qty int32) error {
	if err := s.repo.Commit(productID, ownerID, qty); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"product_id": productID,
			"owner_id":   ownerID,
			"qty":        qty,
		}).Error("commit failed")
		return err
	}
	s.recordOp("committed")
	return nil
}

// Restock возвращает qty единиц в физический остаток владельца.
func (s *Service) Restock(productID, ownerID string, qty int32) error {
	if err := s.repo.AddStock(productID, ownerID, qty); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"product_id": productID,
			"owner_id":   ownerID,
			"qty":        qty,
		}).Error("restock failed")
		return err
	}
	s.recordOp("restocked")
	return nil
}

// ReserveAll резервирует все строки у одного владельца. При любой ошибке
// резервы, сделанные этим вызовом, освобождаются до возврата ошибки.
func (s *Service) ReserveAll(ownerID string, lines []Line) error {
	for i, line := range lines {
		if err := s.Reserve(line.ProductID, ownerID, line.Qty); err != nil {
			s.rollbackReserved(ownerID, lines[:i])
			return err
		}
	}
	return nil
}

// ReleaseAll освобождает резервы всех строк. Ошибки отдельных строк
// логируются, но не прерывают освобождение остальных: возвращается первая.
func (s *Service) ReleaseAll(ownerID string, lines []Line) error {
	var firstErr error
	for _, line := range lines {
		if err := s.Release(line.ProductID, ownerID, line.Qty); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) rollbackReserved(ownerID string, reserved []Line) {
	for _, line := range reserved {
		if err := s.repo.Release(line.ProductID, ownerID, line.Qty); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"product_id": line.ProductID,
				"owner_id":   ownerID,
				"qty":        line.Qty,
			}).Error("compensating release failed")
		}
	}
}

func (s *Service) recordOp(result string) {
	if s.metrics != nil {
		s.metrics.RecordReservationOp(result)
	}
}
