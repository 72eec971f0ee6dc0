package service

import (
	"context"
	"sync"
	"time"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/infra/observability"
	"github.com/gfranca/conta-gateway-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var favoritesTracer = otel.Tracer("service/favorites")

// Favorites manages the favorited-products collection. Toggles are
// submitted against the current membership and the server's returned list
// is adopted wholesale, so a toggle racing a change from another device
// converges on the server's view instead of flip-flopping.
type Favorites struct {
	sessions *SessionManager
	api      port.FavoritesAPI
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu       sync.Mutex
	entries  []domain.FavoriteEntry
	set      domain.FavoriteSet
	mutating bool
}

// NewFavorites creates an empty favorites collection.
func NewFavorites(sessions *SessionManager, api port.FavoritesAPI, metrics *observability.Metrics, logger *zap.Logger) *Favorites {
	return &Favorites{
		sessions: sessions,
		api:      api,
		metrics:  metrics,
		logger:   logger,
		set:      domain.FavoriteSet{},
	}
}

// Entries returns a copy of the current list.
func (f *Favorites) Entries() []domain.FavoriteEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.FavoriteEntry(nil), f.entries...)
}

// IsFavorite reports membership by SKU.
func (f *Favorites) IsFavorite(sku string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set.Has(sku)
}

func (f *Favorites) adopt(list []domain.FavoriteEntry) {
	f.mu.Lock()
	f.entries = list
	f.set = domain.NewFavoriteSet(list)
	f.mu.Unlock()
}

// Load fetches the favorites list from the backend.
func (f *Favorites) Load(ctx context.Context) ([]domain.FavoriteEntry, error) {
	ctx, span := favoritesTracer.Start(ctx, "Favorites.Load")
	defer span.End()

	start := time.Now()
	var list []domain.FavoriteEntry
	err := f.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		l, err := f.api.ListFavorites(ctx, token)
		if err != nil {
			return err
		}
		list = l
		return nil
	})
	f.metrics.RecordRequestDuration("favorites.load", time.Since(start))
	if err != nil {
		return nil, err
	}

	f.adopt(list)
	return f.Entries(), nil
}

// Toggle adds the SKU when absent and removes it when present, based on
// the membership observed at call time. Returns the new membership state.
// A second toggle while one is in flight gets ErrBusy; the UI disables the
// heart button rather than queueing.
func (f *Favorites) Toggle(ctx context.Context, sku, titulo string) (bool, error) {
	ctx, span := favoritesTracer.Start(ctx, "Favorites.Toggle")
	defer span.End()

	if sku == "" {
		return false, &domain.ErrValidation{Field: "sku", Message: "produto inválido"}
	}

	f.mu.Lock()
	if f.mutating {
		f.mu.Unlock()
		return f.IsFavorite(sku), &domain.ErrBusy{Operation: "favorites.toggle"}
	}
	f.mutating = true
	present := f.set.Has(sku)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.mutating = false
		f.mu.Unlock()
	}()

	var list []domain.FavoriteEntry
	err := f.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		var (
			l   []domain.FavoriteEntry
			err error
		)
		if present {
			l, err = f.api.RemoveFavorite(ctx, token, sku)
		} else {
			l, err = f.api.AddFavorite(ctx, token, sku, titulo)
		}
		if err != nil {
			return err
		}
		list = l
		return nil
	})
	if err != nil {
		// Local membership is untouched on failure.
		return present, err
	}

	f.adopt(list)
	f.logger.Debug("favorite toggled", zap.String("sku", sku), zap.Bool("now_favorite", !present))
	return f.IsFavorite(sku), nil
}
