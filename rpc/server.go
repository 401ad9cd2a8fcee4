// Package rpc exposes the ledger over HTTP: a transition submission endpoint,
// read-only query routes, indexed history and a websocket event stream.
package rpc

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridledger/core"
	"gridledger/indexer"
	"gridledger/rpc/middleware"
)

const defaultMaxBodyBytes = 1 << 20

// History serves indexed receipts. It is optional.
type History interface {
	Transitions(ctx context.Context, f indexer.TransitionFilter) ([]indexer.TransitionRecord, error)
	Events(ctx context.Context, f indexer.EventFilter) ([]indexer.Event, error)
}

type Config struct {
	Auth         middleware.AuthConfig
	RateLimit    middleware.RateLimit
	MaxBodyBytes int64
}

type Server struct {
	seq     *core.Sequencer
	history History
	hub     *Hub
	cfg     Config
	logger  *slog.Logger
	auth    *middleware.Authenticator
	limiter *middleware.RateLimiter
	obs     *middleware.Observability
}

// New builds a server over seq and subscribes its event hub to commits.
// history may be nil, in which case the history routes answer 404.
func New(seq *core.Sequencer, history History, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	logger = logger.With(slog.String("component", "rpc"))
	s := &Server{
		seq:     seq,
		history: history,
		hub:     NewHub(),
		cfg:     cfg,
		logger:  logger,
		auth:    middleware.NewAuthenticator(cfg.Auth, logger),
		limiter: middleware.NewRateLimiter(cfg.RateLimit, logger),
		obs:     middleware.NewObservability(logger),
	}
	seq.OnCommit(s.hub.Publish)
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "height": s.seq.Height()})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(tx chi.Router) {
			tx.Use(s.obs.Middleware("transitions"))
			tx.Use(s.limiter.Middleware("transitions"))
			tx.Use(s.auth.Middleware)
			tx.Post("/transitions", s.handleSubmit)
		})

		v1.Group(func(q chi.Router) {
			q.Use(s.obs.Middleware("query"))
			q.Use(s.limiter.Middleware("query"))
			q.Get("/height", s.handleHeight)
			q.Get("/supply", s.handleSupply)
			q.Get("/accounts/{address}/balance", s.handleBalance)
			q.Get("/accounts/{address}/profile", s.handleProfile)
			q.Get("/accounts/{address}/orders", s.handleAccountOrders)
			q.Get("/devices/{id}", s.handleDevice)
			q.Get("/orders", s.handleOpenOrders)
			q.Get("/orders/{id}", s.handleOrder)
			q.Get("/orders/{id}/match", s.handleFindMatch)
			q.Get("/orders/{id}/transfer", s.handleTransfer)
			q.Get("/orders/{id}/measurements", s.handleMeasurements)
			q.Get("/markets/{location}", s.handleMarket)
			q.Get("/markets/{location}/grid", s.handleGrid)
			q.Get("/markets/{location}/priorities", s.handlePriorities)
			q.Get("/markets/{location}/optimal-price", s.handleOptimalPrice)
			q.Get("/payments/{id}", s.handlePayment)
			q.Get("/rates/{from}/{to}", s.handleRate)
			q.Get("/rates/{from}/{to}/convert", s.handleConvert)
			q.Get("/history/transitions", s.handleHistoryTransitions)
			q.Get("/history/events", s.handleHistoryEvents)
		})

		v1.With(s.obs.Middleware("stream")).Get("/events/ws", s.handleEventsWS)
	})
	return r
}
