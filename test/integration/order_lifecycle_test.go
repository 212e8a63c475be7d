package integration

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/catalog"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
	"github.com/vladislavdragonenkov/marketplace/internal/service/directory"
	"github.com/vladislavdragonenkov/marketplace/internal/service/inventory"
	"github.com/vladislavdragonenkov/marketplace/internal/service/invoice"
	"github.com/vladislavdragonenkov/marketplace/internal/service/order"
	"github.com/vladislavdragonenkov/marketplace/internal/service/transfer"
	"github.com/vladislavdragonenkov/marketplace/internal/service/wholesale"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

// FulfillmentLifecycleTestSuite тестирует полный жизненный цикл заказов
// поверх in-memory хранилища: от checkout до доставки и от создания
// оптового заказа до переноса стока ритейлеру.
type FulfillmentLifecycleTestSuite struct {
	suite.Suite
	orders    *order.Service
	checkout  *checkout.Service
	wholesale *wholesale.Service
	inventory domain.InventoryRepository
	outbox    domain.OutboxRepository
}

func (suite *FulfillmentLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	suite.inventory = memory.NewInventoryRepository()
	suite.outbox = memory.NewOutboxRepository()
	orderRepo := memory.NewOrderRepository()
	wholesaleRepo := memory.NewWholesalerOrderRepository()

	catalogSvc := catalog.NewMockService()
	catalogSvc.Add(domain.Product{ID: "laptop-pro", ListPriceMinor: 199900})
	catalogSvc.Add(domain.Product{ID: "mouse-wireless", ListPriceMinor: 4900})
	catalogSvc.Add(domain.Product{ID: "keyboard-bulk", ListPriceMinor: 5000})

	directorySvc := directory.NewMockDirectory()
	directorySvc.Add(domain.WholesalerProfile{
		ID:                     "wholesaler-1",
		MinimumOrderValueMinor: 50000,
		VolumeSchedule: domain.VolumeSchedule{
			{MinQty: 20, DiscountPercent: 10},
		},
		NetTermsDays: 30,
	})

	suite.Require().NoError(suite.inventory.Create(domain.Inventory{
		ProductID: "laptop-pro", OwnerID: "retailer-a",
		CurrentStock: 5, SellingPriceMinor: 199900,
		SourceType: domain.StockSourceManual,
	}))
	suite.Require().NoError(suite.inventory.Create(domain.Inventory{
		ProductID: "mouse-wireless", OwnerID: "retailer-b",
		CurrentStock: 10, SellingPriceMinor: 4900,
		SourceType: domain.StockSourceManual,
	}))
	suite.Require().NoError(suite.inventory.Create(domain.Inventory{
		ProductID: "keyboard-bulk", OwnerID: "wholesaler-1",
		CurrentStock: 100, SellingPriceMinor: 5000,
		SourceType: domain.StockSourceManual,
	}))

	inventorySvc := inventory.NewService(suite.inventory, logger, nil)
	engine := transfer.NewEngine(suite.inventory, logger, nil)

	suite.checkout = checkout.NewService(orderRepo, inventorySvc, catalogSvc, suite.outbox, logger, nil)
	suite.orders = order.NewService(orderRepo, inventorySvc, suite.outbox, logger, nil)
	suite.wholesale = wholesale.NewService(
		wholesaleRepo, inventorySvc, catalogSvc, directorySvc,
		invoice.NewURLRenderer("https://invoices.test"), engine,
		suite.outbox, logger, nil,
	)
}

func (suite *FulfillmentLifecycleTestSuite) TestSuccessfulOrderLifecycle() {
	ctx := context.Background()

	// 1. Checkout мультивендорной корзины
	created, err := suite.checkout.Checkout(ctx, checkout.Request{
		CustomerID:      "customer-123",
		DeliveryAddress: "Arbat 10, Moscow",
		Items: []checkout.RequestItem{
			{ProductID: "laptop-pro", RetailerID: "retailer-a", Qty: 1},
			{ProductID: "mouse-wireless", RetailerID: "retailer-b", Qty: 2},
		},
	})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), created.SubOrders, 2)
	require.EqualValues(suite.T(), 199900+2*4900, created.AmountMinor)

	laptopRow, err := suite.inventory.Get("laptop-pro", "retailer-a")
	require.NoError(suite.T(), err)
	require.EqualValues(suite.T(), 1, laptopRow.ReservedStock)

	// 2. Ритейлер ведёт свой саб-заказ по цепочке до отгрузки
	for _, next := range []domain.SubOrderStatus{
		domain.SubOrderStatusConfirmed,
		domain.SubOrderStatusProcessing,
		domain.SubOrderStatusShipped,
	} {
		_, err = suite.orders.UpdateSubOrderStatus(created.ID, "retailer-a", "retailer-a", next, "")
		require.NoError(suite.T(), err)
	}

	// Отгрузка списывает резерв со склада
	laptopRow, err = suite.inventory.Get("laptop-pro", "retailer-a")
	require.NoError(suite.T(), err)
	require.EqualValues(suite.T(), 4, laptopRow.CurrentStock)
	require.EqualValues(suite.T(), 0, laptopRow.ReservedStock)

	// 3. Доставка до двери
	_, err = suite.orders.UpdateSubOrderStatus(created.ID, "retailer-a", "retailer-a",
		domain.SubOrderStatusOutForDelivery, "")
	require.NoError(suite.T(), err)
	updated, err := suite.orders.UpdateSubOrderStatus(created.ID, "retailer-a", "retailer-a",
		domain.SubOrderStatusDelivered, "courier handed over")
	require.NoError(suite.T(), err)

	delivered := findSubOrder(suite.T(), updated, "retailer-a")
	require.Equal(suite.T(), domain.SubOrderStatusDelivered, delivered.Status)
	require.NotEmpty(suite.T(), delivered.History)

	// Второй саб-заказ ещё pending, мастер-статус отражает смесь
	require.Equal(suite.T(), domain.SubOrderStatusPending,
		findSubOrder(suite.T(), updated, "retailer-b").Status)
	require.NotEqual(suite.T(), domain.SubOrderStatusDelivered, updated.MasterStatus())
}

func (suite *FulfillmentLifecycleTestSuite) TestCancelReleasesReservation() {
	ctx := context.Background()

	created, err := suite.checkout.Checkout(ctx, checkout.Request{
		CustomerID:      "customer-456",
		DeliveryAddress: "Nevsky 20, Saint Petersburg",
		Items: []checkout.RequestItem{
			{ProductID: "mouse-wireless", RetailerID: "retailer-b", Qty: 3},
		},
	})
	require.NoError(suite.T(), err)

	row, err := suite.inventory.Get("mouse-wireless", "retailer-b")
	require.NoError(suite.T(), err)
	require.EqualValues(suite.T(), 3, row.ReservedStock)

	// Покупатель отменяет pending саб-заказ
	updated, err := suite.orders.CancelSubOrder(created.ID, "retailer-b", "customer-456", "changed my mind")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.SubOrderStatusCancelled,
		findSubOrder(suite.T(), updated, "retailer-b").Status)

	row, err = suite.inventory.Get("mouse-wireless", "retailer-b")
	require.NoError(suite.T(), err)
	require.EqualValues(suite.T(), 0, row.ReservedStock)
	require.EqualValues(suite.T(), 10, row.CurrentStock)

	// После отмены движение по цепочке запрещено
	_, err = suite.orders.UpdateSubOrderStatus(created.ID, "retailer-b", "retailer-b",
		domain.SubOrderStatusConfirmed, "")
	require.Error(suite.T(), err)
}

func (suite *FulfillmentLifecycleTestSuite) TestCheckoutInsufficientStockLeavesNoReservations() {
	ctx := context.Background()

	_, err := suite.checkout.Checkout(ctx, checkout.Request{
		CustomerID:      "customer-789",
		DeliveryAddress: "Lenina 1, Kazan",
		Items: []checkout.RequestItem{
			{ProductID: "mouse-wireless", RetailerID: "retailer-b", Qty: 2},
			{ProductID: "laptop-pro", RetailerID: "retailer-a", Qty: 50},
		},
	})
	require.Error(suite.T(), err)
	require.True(suite.T(), errors.Is(err, domain.ErrInsufficientStock))

	// Частичные резервы неудавшегося checkout откатываются
	mouseRow, err := suite.inventory.Get("mouse-wireless", "retailer-b")
	require.NoError(suite.T(), err)
	require.EqualValues(suite.T(), 0, mouseRow.ReservedStock)

	laptopRow, err := suite.inventory.Get("laptop-pro", "retailer-a")
	require.NoError(suite.T(), err)
	require.EqualValues(suite.T(), 0, laptopRow.ReservedStock)
}

func (suite *FulfillmentLifecycleTestSuite) TestWholesaleLifecycleTransfersStock() {
	ctx := context.Background()

	// 1. Ритейлер размещает оптовый заказ: 20 единиц дают 10% объёмной скидки
	created, err := suite.wholesale.Create(ctx, wholesale.CreateRequest{
		RetailerID:   "retailer-a",
		WholesalerID: "wholesaler-1",
		Items:        []wholesale.CreateItem{{ProductID: "keyboard-bulk", Qty: 20}},
	})
	require.NoError(suite.T(), err)
	require.EqualValues(suite.T(), 4500, created.Items[0].UnitPriceMinor)
	require.EqualValues(suite.T(), 90000, created.AmountMinor)

	bulkRow, err := suite.inventory.Get("keyboard-bulk", "wholesaler-1")
	require.NoError(suite.T(), err)
	require.EqualValues(suite.T(), 20, bulkRow.ReservedStock)

	// 2. Оптовик подтверждает и ведёт заказ до доставки
	_, err = suite.wholesale.Confirm(created.ID, "wholesaler-1")
	require.NoError(suite.T(), err)

	for _, next := range []domain.WholesaleStatus{
		domain.WholesaleStatusProcessing,
		domain.WholesaleStatusShipped,
		domain.WholesaleStatusDelivered,
	} {
		_, err = suite.wholesale.UpdateStatus(ctx, created.ID, "wholesaler-1", next, "")
		require.NoError(suite.T(), err)
	}

	completed, err := suite.wholesale.Get(created.ID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.WholesaleStatusCompleted, completed.Status)

	// 3. Сток перенесён: у оптовика списан, у ритейлера появилась строка с provenance
	bulkRow, err = suite.inventory.Get("keyboard-bulk", "wholesaler-1")
	require.NoError(suite.T(), err)
	require.EqualValues(suite.T(), 80, bulkRow.CurrentStock)
	require.EqualValues(suite.T(), 0, bulkRow.ReservedStock)

	retailerRow, err := suite.inventory.Get("keyboard-bulk", "retailer-a")
	require.NoError(suite.T(), err)
	require.EqualValues(suite.T(), 20, retailerRow.CurrentStock)
	require.Equal(suite.T(), domain.StockSourceB2BOrder, retailerRow.SourceType)
	require.Equal(suite.T(), created.ID, retailerRow.SourceOrderID)
	require.Equal(suite.T(), "wholesaler-1", retailerRow.WholesalerID)

	// 4. Оплата по отсрочке: уведомление ритейлера, подтверждение оптовика
	_, err = suite.wholesale.NotifyPaymentSent(created.ID, "retailer-a")
	require.NoError(suite.T(), err)
	paid, err := suite.wholesale.MarkAsPaid(created.ID, "wholesaler-1")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.WholesalePaymentStatusCompleted, paid.PaymentStatus)

	// 5. Счёт доступен участникам заказа
	invoiceURL, err := suite.wholesale.Invoice(ctx, created.ID, "retailer-a")
	require.NoError(suite.T(), err)
	require.NotEmpty(suite.T(), invoiceURL)

	_, err = suite.wholesale.Invoice(ctx, created.ID, "stranger")
	require.Error(suite.T(), err)
}

func (suite *FulfillmentLifecycleTestSuite) TestOutboxAccumulatesLifecycleEvents() {
	ctx := context.Background()

	created, err := suite.checkout.Checkout(ctx, checkout.Request{
		CustomerID:      "customer-events",
		DeliveryAddress: "Mira 5, Novosibirsk",
		Items: []checkout.RequestItem{
			{ProductID: "laptop-pro", RetailerID: "retailer-a", Qty: 1},
		},
	})
	require.NoError(suite.T(), err)

	_, err = suite.orders.UpdateSubOrderStatus(created.ID, "retailer-a", "retailer-a",
		domain.SubOrderStatusConfirmed, "")
	require.NoError(suite.T(), err)

	pending, err := suite.outbox.PullPending(100)
	require.NoError(suite.T(), err)
	require.NotEmpty(suite.T(), pending)

	for _, msg := range pending {
		require.Equal(suite.T(), created.ID, msg.AggregateID)
		require.NotEmpty(suite.T(), msg.EventType)
		require.NotEmpty(suite.T(), msg.Payload)
	}
}

func findSubOrder(t *testing.T, o domain.Order, retailerID string) domain.SubOrder {
	t.Helper()
	for _, sub := range o.SubOrders {
		if sub.RetailerID == retailerID {
			return sub
		}
	}
	t.Fatalf("sub-order for retailer %s not found", retailerID)
	return domain.SubOrder{}
}

func TestFulfillmentLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(FulfillmentLifecycleTestSuite))
}
