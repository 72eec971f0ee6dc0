package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/domain"
)

// ============================================================
// OrdersAPI implementation — PostgREST table reads
// ============================================================
//
// Orders and reviews are read-mostly projections owned by the fulfillment
// and moderation systems; row-level security scopes the reads to the
// token's customer.

type supabaseOrder struct {
	LocalOrderID    string             `json:"local_order_id"`
	OrderID         string             `json:"order_id"`
	TransactionID   string             `json:"transaction_id"`
	Status          string             `json:"status"`
	Items           []domain.OrderItem `json:"items"`
	Total           float64            `json:"total"`
	ShippingAddress *domain.Address    `json:"shipping_address"`
	ShippingOption  string             `json:"shipping_option"`
	CreatedAt       string             `json:"created_at"`
}

// MyOrders fetches the customer's order history, newest first.
func (c *Client) MyOrders(ctx context.Context, token string) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.MyOrders")
	defer span.End()

	raw, err := c.doRead(ctx, http.MethodGet, "/rest/v1/orders?select=*&order=created_at.desc", token, nil)
	if err != nil {
		return nil, err
	}
	if raw == nil || string(raw) == "[]" {
		return []domain.Order{}, nil
	}

	var rows []supabaseOrder
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, domain.Order{
			LocalOrderID:    r.LocalOrderID,
			OrderID:         r.OrderID,
			TransactionID:   r.TransactionID,
			Status:          domain.ParseOrderStatus(r.Status),
			Items:           r.Items,
			Total:           r.Total,
			ShippingAddress: r.ShippingAddress,
			ShippingOption:  r.ShippingOption,
			CreatedAt:       parseTime(r.CreatedAt),
		})
	}
	return orders, nil
}

type supabaseReview struct {
	ID             string   `json:"id"`
	SKU            string   `json:"sku"`
	Rating         int      `json:"rating"`
	Comment        string   `json:"comment"`
	Images         []string `json:"images"`
	Status         string   `json:"status"`
	ModerationNote string   `json:"moderation_note"`
	Helpful        int      `json:"helpful"`
	CreatedAt      string   `json:"created_at"`
}

// UserReviews fetches the customer's reviews. Moderation status comes as
// the server wrote it; the client never transitions it.
func (c *Client) UserReviews(ctx context.Context, token string) ([]domain.Review, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UserReviews")
	defer span.End()

	raw, err := c.doRead(ctx, http.MethodGet, "/rest/v1/reviews?select=*&order=created_at.desc", token, nil)
	if err != nil {
		return nil, err
	}
	if raw == nil || string(raw) == "[]" {
		return []domain.Review{}, nil
	}

	var rows []supabaseReview
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}

	reviews := make([]domain.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, domain.Review{
			ID:             r.ID,
			SKU:            r.SKU,
			Rating:         r.Rating,
			Comment:        r.Comment,
			Images:         r.Images,
			Status:         r.Status,
			ModerationNote: r.ModerationNote,
			Helpful:        r.Helpful,
			CreatedAt:      parseTime(r.CreatedAt),
		})
	}
	return reviews, nil
}
