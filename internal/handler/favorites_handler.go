package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Favoritos
// ============================================================

func listFavoritesHandler(favs *service.Favorites, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/favorites")
		defer span.End()

		entries, err := favs.Load(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"favorites": entries})
	}
}

func toggleFavoriteHandler(favs *service.Favorites, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/favorites/toggle")
		defer span.End()

		var req struct {
			SKU    string `json:"sku"`
			Titulo string `json:"titulo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		favorited, err := favs.Toggle(ctx, req.SKU, req.Titulo)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"sku":       req.SKU,
			"favorited": favorited,
		})
	}
}
