package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/peandrade/ticketflow-sub001/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OrderCache holds cached views of a single order and of a user's
// order list. Every status transition invalidates both; cache failures
// degrade to misses and never fail a request.
type OrderCache interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, bool)
	SetOrder(ctx context.Context, order *models.Order)
	GetUserOrders(ctx context.Context, email string) ([]models.Order, bool)
	SetUserOrders(ctx context.Context, email string, orders []models.Order)
	// Invalidate drops the order view and, when email is known, the
	// owner's list view.
	Invalidate(ctx context.Context, orderID uuid.UUID, email string)
}

type RedisOrderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisOrderCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisOrderCache {
	return &RedisOrderCache{client: client, ttl: ttl, logger: logger}
}

func orderKey(id uuid.UUID) string {
	return fmt.Sprintf("order:view:%s", id)
}

func userOrdersKey(email string) string {
	return fmt.Sprintf("orders:user:%s", email)
}

func (c *RedisOrderCache) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, bool) {
	data, err := c.client.Get(ctx, orderKey(id)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Debug("Order cache read failed", zap.String("order_id", id.String()), zap.Error(err))
		return nil, false
	}
	var order models.Order
	if err := json.Unmarshal([]byte(data), &order); err != nil {
		return nil, false
	}
	return &order, true
}

func (c *RedisOrderCache) SetOrder(ctx context.Context, order *models.Order) {
	data, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, orderKey(order.ID), data, c.ttl).Err(); err != nil {
		c.logger.Debug("Order cache write failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

func (c *RedisOrderCache) GetUserOrders(ctx context.Context, email string) ([]models.Order, bool) {
	data, err := c.client.Get(ctx, userOrdersKey(email)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Debug("Order list cache read failed", zap.String("email", email), zap.Error(err))
		return nil, false
	}
	var orders []models.Order
	if err := json.Unmarshal([]byte(data), &orders); err != nil {
		return nil, false
	}
	return orders, true
}

func (c *RedisOrderCache) SetUserOrders(ctx context.Context, email string, orders []models.Order) {
	data, err := json.Marshal(orders)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, userOrdersKey(email), data, c.ttl).Err(); err != nil {
		c.logger.Debug("Order list cache write failed", zap.String("email", email), zap.Error(err))
	}
}

func (c *RedisOrderCache) Invalidate(ctx context.Context, orderID uuid.UUID, email string) {
	keys := []string{orderKey(orderID)}
	if email != "" {
		keys = append(keys, userOrdersKey(email))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Order cache invalidation failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

// NopOrderCache is used when no Redis URL is configured.
type NopOrderCache struct{}

func (NopOrderCache) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, bool) {
	return nil, false
}
func (NopOrderCache) SetOrder(ctx context.Context, order *models.Order) {}
func (NopOrderCache) GetUserOrders(ctx context.Context, email string) ([]models.Order, bool) {
	return nil, false
}
func (NopOrderCache) SetUserOrders(ctx context.Context, email string, orders []models.Order) {}
func (NopOrderCache) Invalidate(ctx context.Context, orderID uuid.UUID, email string)        {}
