package service

import (
	"context"
	"sort"
	"time"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/infra/observability"
	"github.com/gfranca/conta-gateway-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var ordersTracer = otel.Tracer("service/orders")

// OrderHistory is the read-only order and review history. Nothing here
// mutates backend state, so there is no in-flight gating; concurrent
// loads simply adopt whichever response lands last.
type OrderHistory struct {
	sessions *SessionManager
	api      port.OrdersAPI
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewOrderHistory creates the order history reader.
func NewOrderHistory(sessions *SessionManager, api port.OrdersAPI, metrics *observability.Metrics, logger *zap.Logger) *OrderHistory {
	return &OrderHistory{sessions: sessions, api: api, metrics: metrics, logger: logger}
}

// Orders fetches the customer's orders, newest first.
func (h *OrderHistory) Orders(ctx context.Context) ([]domain.Order, error) {
	ctx, span := ordersTracer.Start(ctx, "OrderHistory.Orders")
	defer span.End()

	start := time.Now()
	var orders []domain.Order
	err := h.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		o, err := h.api.MyOrders(ctx, token)
		if err != nil {
			return err
		}
		orders = o
		return nil
	})
	h.metrics.RecordRequestDuration("orders.load", time.Since(start))
	if err != nil {
		return nil, err
	}

	SortOrders(orders, false)
	return orders, nil
}

// Reviews fetches the customer's product reviews.
func (h *OrderHistory) Reviews(ctx context.Context) ([]domain.Review, error) {
	ctx, span := ordersTracer.Start(ctx, "OrderHistory.Reviews")
	defer span.End()

	var reviews []domain.Review
	err := h.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		r, err := h.api.UserReviews(ctx, token)
		if err != nil {
			return err
		}
		reviews = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// FilterByStatus returns the orders whose status matches. An empty status
// returns the input unchanged.
func FilterByStatus(orders []domain.Order, status domain.OrderStatus) []domain.Order {
	if status == "" {
		return orders
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// SortOrders orders by creation time, stably so same-timestamp orders keep
// their backend order. ascending=false puts the newest first.
func SortOrders(orders []domain.Order, ascending bool) {
	sort.SliceStable(orders, func(i, j int) bool {
		if ascending {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
