package router

import (
	"net/http"
	"strings"

	"shophub/internal/handler"
	"shophub/internal/middleware"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	orderHandler *handler.OrderHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Order handler function
	orderRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSuffix(r.URL.Path, "/")

		// Collection routes: /api/orders
		if path == "/api/orders" {
			switch r.Method {
			case http.MethodPost:
				orderHandler.Create(w, r)
			case http.MethodGet:
				orderHandler.List(w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		// Item routes: /api/orders/{id} and /api/orders/{id}/cancel
		rest := strings.TrimPrefix(path, "/api/orders/")
		cancel := false
		if strings.HasSuffix(rest, "/cancel") {
			rest = strings.TrimSuffix(rest, "/cancel")
			cancel = true
		}

		orderID, err := uuid.Parse(rest)
		if err != nil {
			http.Error(w, "invalid order ID format", http.StatusBadRequest)
			return
		}

		switch {
		case cancel && r.Method == http.MethodPost:
			orderHandler.Cancel(w, r, orderID)
		case !cancel && r.Method == http.MethodGet:
			orderHandler.GetByID(w, r, orderID)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}

	// Register order routes (both with and without trailing slash)
	mux.HandleFunc("/api/orders", orderRouteHandler)
	mux.HandleFunc("/api/orders/", orderRouteHandler)

	// Apply middleware in order: Recovery -> RequestID -> Logging -> CORS -> APIKeyAuth -> Identity
	var h http.Handler = mux
	h = middleware.Identity(logger)(h)
	h = middleware.APIKeyAuth(apiKey, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID(h)
	h = middleware.Recovery(logger)(h)

	return h
}
