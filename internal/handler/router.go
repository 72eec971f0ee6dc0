package handler

import (
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/infra/observability"
	"github.com/gfranca/conta-gateway-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router serves. Each field maps to one
// area of the account UI.
type Services struct {
	Sessions  *service.SessionManager
	Profile   *service.ProfileStore
	Addresses *service.AddressBook
	Favorites *service.Favorites
	Orders    *service.OrderHistory
}

// NewRouter creates the HTTP router with all routes and middleware. The
// gateway is consumed by the browser surfaces on localhost, so CORS is
// restricted to the configured origins.
func NewRouter(svcs Services, metrics *observability.Metrics, corsOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Sessions, metrics))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Autenticação
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", loginHandler(svcs.Sessions, logger))
			r.Post("/register", registerHandler(svcs.Sessions, logger))
			r.Post("/logout", logoutHandler(svcs.Sessions, logger))
			r.Post("/refresh", refreshHandler(svcs.Sessions, logger))
			r.Post("/password/recover", forgotPasswordHandler(svcs.Sessions, logger))
		})

		// Session state for the surfaces
		r.Get("/session", sessionHandler(svcs.Sessions))
		r.Get("/session/events", sessionEventsHandler(svcs.Sessions, logger))

		// Perfil
		r.Route("/profile", func(r chi.Router) {
			r.Get("/", getProfileHandler(svcs.Profile, logger))
			r.Get("/snapshot", snapshotHandler(svcs.Profile))
			r.Put("/", updateProfileHandler(svcs.Profile, logger))
			r.Put("/avatar", setAvatarHandler(svcs.Profile, logger))
			r.Post("/avatar/upload", uploadAvatarHandler(svcs.Profile, logger))
			r.Delete("/avatar/custom", removeCustomAvatarHandler(svcs.Profile, logger))
		})

		// Endereços
		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", listAddressesHandler(svcs.Addresses, logger))
			r.Post("/", createAddressHandler(svcs.Addresses, logger))
			r.Put("/{addressId}", updateAddressHandler(svcs.Addresses, logger))
			r.Delete("/{addressId}", deleteAddressHandler(svcs.Addresses, logger))
			r.Post("/{addressId}/default", setDefaultAddressHandler(svcs.Addresses, logger))
			r.Post("/autofill", autofillHandler(svcs.Addresses, logger))
		})

		// Favoritos
		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", listFavoritesHandler(svcs.Favorites, logger))
			r.Post("/toggle", toggleFavoriteHandler(svcs.Favorites, logger))
		})

		// Pedidos e avaliações
		r.Get("/orders", listOrdersHandler(svcs.Orders, logger))
		r.Get("/reviews", listReviewsHandler(svcs.Orders, logger))
	})

	return r
}

// healthzHandler reports process health plus a cheap signal of whether a
// session is currently held.
func healthzHandler(sessions *service.SessionManager, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "healthy",
			"signed_in":    sessions.Session() != nil,
			"auth_retries": metrics.AuthRetryCount(),
		})
	}
}
