package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brojonat/tipjar/service/db"
	"github.com/brojonat/tipjar/service/metrics"
	natspkg "github.com/brojonat/tipjar/service/nats"
	"github.com/brojonat/tipjar/service/tipjar"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReceiptStore records and lists accepted tips.
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, params db.CreateReceiptParams) (*db.Receipt, error)
	GetReceipt(ctx context.Context, digest string) (*db.Receipt, error)
	ListReceipts(ctx context.Context, params db.ListReceiptsParams) ([]*db.Receipt, error)
	CountReceipts(ctx context.Context, tipJarID string) (int64, error)
}

// Deps are the collaborators of a Server. Store, Publisher, Subscriber and
// Metrics are optional; the routes that need them are disabled when nil.
type Deps struct {
	Network    string
	Stats      *tipjar.StatsReader
	Sender     *tipjar.Sender
	Store      ReceiptStore
	Publisher  natspkg.Publisher
	Subscriber natspkg.Subscriber
	Metrics    *metrics.Metrics
}

// Server is the HTTP surface of one tip jar widget. It owns the widget and
// acts as its caller: every successful tip is recorded, published and
// followed by a refresh of the jar stats.
type Server struct {
	addr       string
	network    string
	settings   tipjar.Settings
	widget     *tipjar.Widget
	store      ReceiptStore
	publisher  natspkg.Publisher
	subscriber natspkg.Subscriber
	renderer   *TemplateRenderer
	metrics    *metrics.Metrics
	logger     *slog.Logger
	server     *http.Server

	refreshKey atomic.Uint64
}

// New creates a new HTTP server with the given dependencies.
func New(addr string, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		addr:       addr,
		network:    deps.Network,
		settings:   deps.Sender.Settings(),
		store:      deps.Store,
		publisher:  deps.Publisher,
		subscriber: deps.Subscriber,
		metrics:    deps.Metrics,
		logger:     logger,
	}
	s.widget = tipjar.NewWidget(deps.Stats, deps.Sender, tipjar.Options{
		OnTipSuccess: s.onTipSuccess,
		Metrics:      deps.Metrics,
		Logger:       logger,
	})
	return s
}

// WithTemplates adds template rendering support to the server using embedded files.
func (s *Server) WithTemplates() error {
	renderer, err := NewTemplateRenderer(s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize templates: %w", err)
	}
	s.renderer = renderer
	s.logger.Info("HTML templates loaded from embedded files")
	return nil
}

// Widget returns the widget the server drives.
func (s *Server) Widget() *tipjar.Widget {
	return s.widget
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET /api/v1/tipjar", handleGetTipJar(s.widget, s.settings))
	s.handle(mux, "GET /api/v1/widget", handleGetWidget(s.widget))
	s.handle(mux, "POST /api/v1/tipjar/refresh", handleRefresh(s.widget, s.bumpRefreshKey, s.settings))
	s.handle(mux, "POST /api/v1/tips", handleSendTip(s.widget, s.logger))
	s.handle(mux, "GET /api/v1/tipjar/qr.png", handleQRCode(s.settings, s.network, s.logger))

	if s.store != nil {
		s.handle(mux, "GET /api/v1/tips", handleListReceipts(s.store, s.settings, s.logger))
		s.handle(mux, "GET /api/v1/tips/{digest}", handleGetReceipt(s.store, s.logger))
	} else {
		s.logger.Warn("receipt store not configured, receipt listing disabled")
	}

	if s.subscriber != nil {
		s.handle(mux, "GET /api/v1/stream/tips", handleStreamTips(s.subscriber, s.settings, s.metrics, s.logger))
		s.logger.Info("SSE streaming endpoint enabled")
	} else {
		s.logger.Warn("NATS not configured, streaming endpoint disabled")
	}

	if s.renderer != nil {
		mux.HandleFunc("GET /{$}", handleWidgetPage(s.renderer, s.widget, s.settings))
		mux.HandleFunc("POST /tip", handleWidgetForm(s.widget, s.logger))
		s.logger.Info("HTML page endpoints enabled")
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(mux)
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, pattern)(h))
}

// Start performs the initial stats read and serves HTTP until shut down.
func (s *Server) Start() error {
	s.widget.Activate(context.Background())

	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Sends block on the sponsor relay and SSE streams stay open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) bumpRefreshKey() uint64 {
	return s.refreshKey.Add(1)
}

// onTipSuccess runs once per accepted tip, after the widget cleared its amount.
func (s *Server) onTipSuccess(receipt *tipjar.Receipt) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := s.logger.With("digest", receipt.Digest, "tip_jar_id", receipt.TipJarID)

	if s.store != nil {
		_, err := s.store.CreateReceipt(ctx, db.CreateReceiptParams{
			Digest:     receipt.Digest,
			TipJarID:   receipt.TipJarID,
			Sender:     receipt.Sender,
			Amount:     receipt.Amount,
			AmountMist: receipt.AmountMist,
			CoinID:     receipt.CoinID,
			SentAt:     receipt.SentAt,
		})
		if err != nil {
			logger.Error("failed to record receipt", "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTip(ctx, natspkg.FromReceipt(receipt)); err != nil {
			logger.Error("failed to publish tip event", "error", err)
		}
	}

	s.widget.Refresh(context.Background(), s.bumpRefreshKey())
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
