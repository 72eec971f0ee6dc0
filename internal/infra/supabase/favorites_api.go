package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gfranca/conta-gateway-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// FavoritesAPI implementation — PostgREST RPC
// ============================================================

type supabaseFavorite struct {
	SKU     string `json:"sku"`
	Titulo  string `json:"titulo"`
	AddedAt string `json:"added_at"`
}

type favoritesEnvelope struct {
	Favorites []supabaseFavorite `json:"favorites"`
}

func (c *Client) decodeFavorites(raw []byte) ([]domain.FavoriteEntry, error) {
	var env favoritesEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}
	out := make([]domain.FavoriteEntry, 0, len(env.Favorites))
	for _, f := range env.Favorites {
		t, _ := time.Parse(time.RFC3339, f.AddedAt)
		out = append(out, domain.FavoriteEntry{SKU: f.SKU, Titulo: f.Titulo, AddedAt: t})
	}
	return out, nil
}

// ListFavorites returns the customer's favorites, server-deduplicated.
func (c *Client) ListFavorites(ctx context.Context, token string) ([]domain.FavoriteEntry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListFavorites")
	defer span.End()

	raw, err := c.doRead(ctx, http.MethodPost, "/rest/v1/rpc/favorites_list", token, struct{}{})
	if err != nil {
		return nil, err
	}
	return c.decodeFavorites(raw)
}

// AddFavorite adds a SKU and returns the authoritative membership list.
func (c *Client) AddFavorite(ctx context.Context, token, sku, titulo string) ([]domain.FavoriteEntry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.AddFavorite")
	defer span.End()
	span.SetAttributes(attribute.String("favorite.sku", sku))

	body := map[string]string{"sku": sku, "titulo": titulo}
	raw, err := c.doWrite(ctx, http.MethodPost, "/rest/v1/rpc/favorites_add", token, body)
	if err != nil {
		return nil, err
	}
	return c.decodeFavorites(raw)
}

// RemoveFavorite removes a SKU and returns the authoritative list.
func (c *Client) RemoveFavorite(ctx context.Context, token, sku string) ([]domain.FavoriteEntry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.RemoveFavorite")
	defer span.End()
	span.SetAttributes(attribute.String("favorite.sku", sku))

	raw, err := c.doWrite(ctx, http.MethodPost, "/rest/v1/rpc/favorites_remove", token, map[string]string{"sku": sku})
	if err != nil {
		return nil, err
	}
	return c.decodeFavorites(raw)
}
