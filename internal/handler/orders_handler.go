package handler

import (
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Pedidos e avaliações
// ============================================================

type orderView struct {
	domain.Order
	Trackable bool              `json:"trackable"`
	Kind      domain.StatusKind `json:"status_kind"`
}

func listOrdersHandler(history *service.OrderHistory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/orders")
		defer span.End()

		// The fail-open mapping is for backend data only; a filter the
		// caller typed has no order to fall back to.
		status := r.URL.Query().Get("status")
		if status != "" && !domain.KnownOrderStatus(status) {
			writeError(w, http.StatusBadRequest, "status de pedido desconhecido")
			return
		}

		orders, err := history.Orders(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if status != "" {
			orders = service.FilterByStatus(orders, domain.OrderStatus(status))
		}
		if r.URL.Query().Get("sort") == "asc" {
			service.SortOrders(orders, true)
		}

		views := make([]orderView, 0, len(orders))
		for _, o := range orders {
			views = append(views, orderView{
				Order:     o,
				Trackable: o.Status.Trackable(),
				Kind:      o.Status.Kind(),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"orders": views})
	}
}

func listReviewsHandler(history *service.OrderHistory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reviews")
		defer span.End()

		reviews, err := history.Reviews(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
	}
}
