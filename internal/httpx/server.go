// Package httpx is the HTTP surface of the order desk.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
	"github.com/ariefcatur/go-chat-orders/internal/dedup"
	"github.com/ariefcatur/go-chat-orders/internal/metrics"
	"github.com/ariefcatur/go-chat-orders/internal/orders"
	"github.com/ariefcatur/go-chat-orders/internal/routing"
	"github.com/ariefcatur/go-chat-orders/internal/transcript"
)

// TranscriptReader serves GET /v1/users/{id}/transcript.
type TranscriptReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]transcript.Entry, error)
}

type Deps struct {
	Dispatcher  *routing.Dispatcher
	Guard       dedup.Guard
	Catalog     catalog.Store
	Ledger      *orders.Ledger
	Transcript  TranscriptReader
	Metrics     *metrics.Registry
	Log         *zap.Logger
	CORSOrigins []string
	// LowStockThreshold is the default for GET /v1/products?low_stock=1.
	LowStockThreshold int
}

func NewRouter(d Deps) *chi.Mux {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	h := &handlers{d: d}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/messages", h.postMessage)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/products", h.listProducts)
		r.Get("/users/{id}/orders", h.listUserOrders)
		if d.Transcript != nil {
			r.Get("/users/{id}/transcript", h.getTranscript)
		}
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

type okEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(okEnvelope{Success: true, Data: v})
}
