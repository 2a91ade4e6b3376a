package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/order-orchestrator/pkg/mylogger"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"go.uber.org/zap"
)

type cachedOrderService struct {
	next        OrderService
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *zap.Logger
}

func NewCachedOrderService(next OrderService, redisClient *redis.Client, cacheTTL time.Duration, logger *zap.Logger) OrderService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	return &cachedOrderService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func orderKey(id int64) string {
	return fmt.Sprintf("order:%d", id)
}

func (s *cachedOrderService) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	key := orderKey(id)

	val, err := s.redisClient.Get(ctx, key).Bytes()
	if err == nil {
		var order domain.Order
		if err := json.Unmarshal(val, &order); err == nil {
			return &order, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		mylogger.Warn(ctx, s.logger, "Order cache read failed", zap.String("key", key), zap.Error(err))
	}

	order, err := s.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.store(ctx, order)
	return order, nil
}

func (s *cachedOrderService) store(ctx context.Context, order *domain.Order) {
	data, err := json.Marshal(order)
	if err != nil {
		return
	}

	if err := s.redisClient.Set(ctx, orderKey(order.ID), data, s.cacheTTL).Err(); err != nil {
		mylogger.Warn(ctx, s.logger, "Order cache write failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// invalidate runs after failed mutations too.
func (s *cachedOrderService) invalidate(ctx context.Context, id int64) {
	if err := s.redisClient.Del(ctx, orderKey(id)).Err(); err != nil {
		mylogger.Warn(ctx, s.logger, "Order cache invalidation failed", zap.Int64("order_id", id), zap.Error(err))
	}
}

func (s *cachedOrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	return s.next.CreateOrder(ctx, input)
}

func (s *cachedOrderService) UpdateStatus(ctx context.Context, orderID int64, input StatusInput) (*domain.Order, error) {
	defer s.invalidate(ctx, orderID)
	return s.next.UpdateStatus(ctx, orderID, input)
}

func (s *cachedOrderService) UpdateLineQuantity(ctx context.Context, orderID, lineID int64, quantity int) (*domain.Order, error) {
	defer s.invalidate(ctx, orderID)
	return s.next.UpdateLineQuantity(ctx, orderID, lineID, quantity)
}

func (s *cachedOrderService) UpdateDetails(ctx context.Context, orderID int64, input DetailsInput) (*domain.Order, error) {
	defer s.invalidate(ctx, orderID)
	return s.next.UpdateDetails(ctx, orderID, input)
}

func (s *cachedOrderService) Cancel(ctx context.Context, orderID int64) (*domain.Order, error) {
	defer s.invalidate(ctx, orderID)
	return s.next.Cancel(ctx, orderID)
}

func (s *cachedOrderService) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.next.GetByNumber(ctx, number)
}

func (s *cachedOrderService) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.next.ListAll(ctx)
}

func (s *cachedOrderService) ProductStock(ctx context.Context, productID int64) (*domain.StockLevel, error) {
	return s.next.ProductStock(ctx, productID)
}

func (s *cachedOrderService) ListByCustomer(ctx context.Context, customerID int64, status string) ([]domain.Order, error) {
	return s.next.ListByCustomer(ctx, customerID, status)
}

func (s *cachedOrderService) ListByStatus(ctx context.Context, status string) ([]domain.Order, error) {
	return s.next.ListByStatus(ctx, status)
}

func (s *cachedOrderService) Search(ctx context.Context, keyword string) ([]domain.Order, error) {
	return s.next.Search(ctx, keyword)
}

func (s *cachedOrderService) Exists(ctx context.Context, id int64) (bool, error) {
	return s.next.Exists(ctx, id)
}

func (s *cachedOrderService) Stats(ctx context.Context) (*domain.Stats, error) {
	return s.next.Stats(ctx)
}
