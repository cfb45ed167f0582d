package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
	"livey-backend/internal/repository"
	"livey-backend/internal/validate"
)

type StockPolicy string

const (
	// StockBestEffort decrements tracked stock but never blocks a sale on it.
	StockBestEffort StockPolicy = "best_effort"
	// StockStrict rejects an order when tracked stock cannot cover it.
	StockStrict StockPolicy = "strict"
)

const (
	maxOrderNumberAttempts = 3

	DefaultListLimit = 50
	MaxListLimit     = 100

	msgProductUnavailable = "Product not found or no longer available"
	msgOrderNotFound      = "Order not found"
	msgInvalidStatus      = "Invalid status. Must be one of: pending, confirmed, cancelled, delivered"
	msgInvalidSession     = "Invalid session_id"
	msgOutOfStock         = "Insufficient stock for this product"
	msgTotalTooLarge      = "Order total is too large"
)

// maxTotalPrice matches the INTEGER total_price column.
const maxTotalPrice = math.MaxInt32

// NewOrderNumber returns ORD-<yyyymmdd>-<4 hex>, using the UTC date.
func NewOrderNumber(now time.Time) (string, error) {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}
	return "ORD-" + now.UTC().Format("20060102") + "-" + hex.EncodeToString(b), nil
}

type OrderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	queue     SyncQueue
	policy    StockPolicy
	now       func() time.Time
	newNumber func(time.Time) (string, error)
	log       *zap.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	queue SyncQueue,
	policy StockPolicy,
	log *zap.Logger,
) *OrderService {
	if policy != StockStrict {
		policy = StockBestEffort
	}
	return &OrderService{
		orders:    orders,
		products:  products,
		queue:     queue,
		policy:    policy,
		now:       time.Now,
		newNumber: NewOrderNumber,
		log:       log,
	}
}

// Create validates a public order, snapshots the product, adjusts stock and
// persists the order. Sheet sync is queued and never awaited.
func (s *OrderService) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	in, err := validate.Order(req)
	if err != nil {
		return nil, err
	}

	productID, err := uuid.Parse(in.ProductID)
	if err != nil {
		return nil, errs.WithMessage(errs.ErrNotFound, msgProductUnavailable)
	}
	var sessionID *uuid.UUID
	if in.SessionID != "" {
		id, err := uuid.Parse(in.SessionID)
		if err != nil {
			return nil, errs.Validation(msgInvalidSession)
		}
		sessionID = &id
	}

	product, err := s.products.GetActive(ctx, productID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.WithMessage(errs.ErrNotFound, msgProductUnavailable)
	}
	if err != nil {
		return nil, err
	}

	// Quantity is capped at MaxInt32 by validation and price is an int4 column,
	// so the product cannot overflow int64.
	total := product.Price * int64(in.Quantity)
	if total > maxTotalPrice {
		return nil, errs.Validation(msgTotalTooLarge)
	}

	order := &models.Order{
		SellerID:        product.SellerID,
		ProductID:       product.ID,
		SessionID:       sessionID,
		ProductName:     product.Name,
		ProductPrice:    product.Price,
		Quantity:        in.Quantity,
		TotalPrice:      total,
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerAddress: in.CustomerAddress,
		Status:          models.StatusPending,
	}

	number, err := s.newNumber(s.now())
	if err != nil {
		return nil, err
	}

	taken, err := s.takeStock(ctx, product, in.Quantity)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		order.OrderNumber = number
		err = s.orders.Create(ctx, order)
		if err == nil || !errors.Is(err, errs.ErrAlreadyExists) || attempt == maxOrderNumberAttempts {
			break
		}
		s.log.Warn("order number collision, regenerating",
			zap.String("order_number", number), zap.Int("attempt", attempt))
		if number, err = s.newNumber(s.now()); err != nil {
			break
		}
	}
	if err != nil {
		if taken > 0 {
			s.giveBackStock(ctx, product, taken)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("seller_id", order.SellerID.String()),
		zap.String("product_id", order.ProductID.String()),
		zap.Int("quantity", order.Quantity),
		zap.Int64("total_price", order.TotalPrice),
	)

	if s.queue != nil {
		s.queue.Enqueue(*order)
	}
	return order, nil
}

// takeStock returns how many units were actually removed from stock.
func (s *OrderService) takeStock(ctx context.Context, p *models.Product, qty int) (int, error) {
	if p.Stock == nil {
		return 0, nil
	}

	taken, err := s.products.DecrementStock(ctx, p.ID, qty, s.policy == StockStrict)
	if err == nil {
		return taken, nil
	}
	if s.policy == StockStrict {
		if errors.Is(err, errs.ErrOutOfStock) {
			return 0, errs.WithMessage(errs.ErrOutOfStock, msgOutOfStock)
		}
		return 0, err
	}

	s.log.Warn("stock update failed, order proceeds",
		zap.String("product_id", p.ID.String()), zap.Int("quantity", qty), zap.Error(err))
	return 0, nil
}

func (s *OrderService) giveBackStock(ctx context.Context, p *models.Product, qty int) {
	if err := s.products.RestoreStock(context.WithoutCancel(ctx), p.ID, qty); err != nil {
		s.log.Error("failed to restore stock after order insert failure",
			zap.String("product_id", p.ID.String()), zap.Int("quantity", qty), zap.Error(err))
	}
}

// List returns a page of the seller's orders. limit is clamped to [1, MaxListLimit].
func (s *OrderService) List(ctx context.Context, sellerID uuid.UUID, limit, offset int) (*models.OrderListResponse, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	orders, total, err := s.orders.ListForSeller(ctx, sellerID, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := &models.OrderListResponse{
		Orders: make([]models.OrderResponse, 0, len(orders)),
		Pagination: models.Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(orders) < total,
		},
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, models.NewOrderResponse(&orders[i]))
	}
	return resp, nil
}

func (s *OrderService) Get(ctx context.Context, sellerID, id uuid.UUID) (*models.Order, error) {
	o, err := s.orders.GetForSeller(ctx, sellerID, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.WithMessage(errs.ErrNotFound, msgOrderNotFound)
	}
	return o, err
}

// UpdateStatus is the only seller mutation on an order.
func (s *OrderService) UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, status string) (*models.Order, error) {
	next := models.OrderStatus(status)
	if !next.Valid() {
		return nil, errs.Validation(msgInvalidStatus)
	}

	current, err := s.Get(ctx, sellerID, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, sellerID, id, next)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.WithMessage(errs.ErrNotFound, msgOrderNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("order status updated",
		zap.String("order_id", id.String()),
		zap.String("seller_id", sellerID.String()),
		zap.String("old_status", string(current.Status)),
		zap.String("new_status", string(next)),
	)
	return updated, nil
}
