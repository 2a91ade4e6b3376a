package repository

import (
	"testing"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sakashimaa/order-orchestrator/pkg/testsuite"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type RepositorySuite struct {
	testsuite.BaseSuite

	repo OrderRepository
}

func (s *RepositorySuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("integration test")
	}

	s.BaseSuite.SetupInfrastructure("../../migrations")
	s.repo = NewOrderRepository(s.DbPool, zap.NewNop())
}

func (s *RepositorySuite) TearDownSuite() {
	s.BaseSuite.TearDownInfrastructure()
}

func (s *RepositorySuite) SetupTest() {
	s.BaseSuite.TruncateTable("order_lines")
	s.BaseSuite.TruncateTable("orders")
}

func (s *RepositorySuite) newOrder(number string, customerID int64, name, email string) *domain.Order {
	order := &domain.Order{
		OrderNumber:       number,
		CustomerID:        customerID,
		CustomerName:      name,
		CustomerEmail:     email,
		Status:            domain.StatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		ShippingAddress:   "1 Analytical St",
		EstimatedDelivery: time.Now().Add(72 * time.Hour).UTC().Truncate(time.Microsecond),
		Lines: []domain.OrderLine{
			domain.NewOrderLine(domain.Product{ID: 5, Name: "Keyboard", SKU: "KB-5", Price: decimal.RequireFromString("20.00")}, 3),
			domain.NewOrderLine(domain.Product{ID: 6, Name: "Mouse Pad", SKU: "MP-6", Price: decimal.RequireFromString("4.50")}, 1),
		},
	}
	order.Recalculate()

	s.Require().NoError(s.repo.Save(s.Ctx, order))
	return order
}

func (s *RepositorySuite) TestSave_InsertAndFind() {
	order := s.newOrder("ORD-AAAA1111", 1, "Ada Lovelace", "ada@example.com")

	s.Require().NotZero(order.ID)
	s.Require().NotZero(order.Lines[0].ID)
	s.Require().Equal(order.ID, order.Lines[1].OrderID)

	found, err := s.repo.FindByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal("ORD-AAAA1111", found.OrderNumber)
	s.Require().True(found.TotalAmount.Equal(decimal.RequireFromString("64.50")), found.TotalAmount.String())
	s.Require().Len(found.Lines, 2)
	s.Require().Equal("Keyboard", found.Lines[0].ProductName)
	s.Require().True(found.Lines[0].Subtotal.Equal(decimal.RequireFromString("60")))
	s.Require().Nil(found.TrackingNumber)

	byNumber, err := s.repo.FindByNumber(s.Ctx, "ORD-AAAA1111")
	s.Require().NoError(err)
	s.Require().Equal(order.ID, byNumber.ID)
}

func (s *RepositorySuite) TestSave_DuplicateOrderNumber() {
	s.newOrder("ORD-DUPL0001", 1, "Ada", "ada@example.com")

	dup := &domain.Order{
		OrderNumber:       "ORD-DUPL0001",
		CustomerID:        2,
		Status:            domain.StatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		EstimatedDelivery: time.Now(),
	}

	err := s.repo.Save(s.Ctx, dup)
	s.Require().ErrorIs(err, ErrDuplicateOrderNumber)
	s.Require().Zero(dup.ID)
}

func (s *RepositorySuite) TestSave_Update() {
	order := s.newOrder("ORD-UPDT0001", 1, "Ada", "ada@example.com")

	tracking := "TRACK-1"
	order.Lines[0].SetQuantity(1)
	order.Recalculate()
	order.Status = domain.StatusShipped
	order.PaymentStatus = domain.PaymentStatusPaid
	order.TrackingNumber = &tracking
	order.OrderNumber = "ORD-CHANGED0"

	s.Require().NoError(s.repo.Save(s.Ctx, order))

	found, err := s.repo.FindByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal("ORD-UPDT0001", found.OrderNumber, "order number is immutable")
	s.Require().Equal(domain.StatusShipped, found.Status)
	s.Require().Equal(domain.PaymentStatusPaid, found.PaymentStatus)
	s.Require().Equal(1, found.Lines[0].Quantity)
	s.Require().True(found.TotalAmount.Equal(decimal.RequireFromString("24.50")))
	s.Require().Equal(tracking, *found.TrackingNumber)
	s.Require().Equal(int64(2), found.Version)
	s.Require().Equal(found.Version, order.Version)
}

func (s *RepositorySuite) TestSave_StaleVersionIsRefused() {
	order := s.newOrder("ORD-RACE0001", 1, "Ada", "ada@example.com")
	s.Require().Equal(int64(1), order.Version)

	first, err := s.repo.FindByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	second, err := s.repo.FindByID(s.Ctx, order.ID)
	s.Require().NoError(err)

	first.Status = domain.StatusCancelled
	first.PaymentStatus = domain.PaymentStatusRefunded
	s.Require().NoError(s.repo.Save(s.Ctx, first))

	second.Status = domain.StatusCancelled
	second.PaymentStatus = domain.PaymentStatusRefunded
	second.Notes = "late writer"
	err = s.repo.Save(s.Ctx, second)
	s.Require().ErrorIs(err, ErrStaleOrder)
	s.Require().ErrorIs(err, domain.ErrConcurrentUpdate)
	s.Require().Equal(int64(1), second.Version)

	stored, err := s.repo.FindByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(2), stored.Version)
	s.Require().Empty(stored.Notes)
}

func (s *RepositorySuite) TestSave_UpdateMissing() {
	err := s.repo.Save(s.Ctx, &domain.Order{ID: 4242, Status: domain.StatusPending, PaymentStatus: domain.PaymentStatusPending})
	s.Require().ErrorIs(err, ErrOrderNotFound)
	s.Require().ErrorIs(err, domain.ErrNotFound)
}

func (s *RepositorySuite) TestQueries() {
	first := s.newOrder("ORD-QRY00001", 1, "Ada Lovelace", "ada@example.com")
	second := s.newOrder("ORD-QRY00002", 1, "Ada Lovelace", "ada@example.com")
	s.newOrder("ORD-QRY00003", 2, "Charles Babbage", "charles@engine.org")

	second.Status = domain.StatusDelivered
	second.PaymentStatus = domain.PaymentStatusPaid
	s.Require().NoError(s.repo.Save(s.Ctx, second))

	orders, err := s.repo.FindAll(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(orders, 3)
	s.Require().Equal(first.ID, orders[2].ID)

	orders, err = s.repo.FindByCustomer(s.Ctx, 1, nil)
	s.Require().NoError(err)
	s.Require().Len(orders, 2)
	s.Require().Len(orders[0].Lines, 2)

	delivered := domain.StatusDelivered
	orders, err = s.repo.FindByCustomer(s.Ctx, 1, &delivered)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Require().Equal(second.ID, orders[0].ID)

	orders, err = s.repo.FindByStatus(s.Ctx, domain.StatusPending)
	s.Require().NoError(err)
	s.Require().Len(orders, 2)

	orders, err = s.repo.Search(s.Ctx, "ENGINE")
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Require().Equal("Charles Babbage", orders[0].CustomerName)

	orders, err = s.repo.Search(s.Ctx, "qry0000")
	s.Require().NoError(err)
	s.Require().Len(orders, 3)

	exists, err := s.repo.Exists(s.Ctx, first.ID)
	s.Require().NoError(err)
	s.Require().True(exists)

	exists, err = s.repo.Exists(s.Ctx, 99999)
	s.Require().NoError(err)
	s.Require().False(exists)

	count, err := s.repo.Count(s.Ctx)
	s.Require().NoError(err)
	s.Require().Equal(int64(3), count)

	count, err = s.repo.CountByStatus(s.Ctx, domain.StatusDelivered)
	s.Require().NoError(err)
	s.Require().Equal(int64(1), count)

	revenue, err := s.repo.DeliveredRevenue(s.Ctx)
	s.Require().NoError(err)
	s.Require().True(revenue.Equal(decimal.RequireFromString("64.50")), revenue.String())

	_, err = s.repo.FindByID(s.Ctx, 99999)
	s.Require().ErrorIs(err, ErrOrderNotFound)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}
