package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gastos/internal/bot"
	"gastos/internal/log"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
	"gastos/internal/services"
	"gastos/internal/session"
)

// Deps are the collaborators a Server routes to.
type Deps struct {
	Ledger *services.LedgerService
	Bot    *bot.Dispatcher
	Guard  *session.ClearGuard
	Logger *log.Logger

	RateLimitPerMinute int
	ListLimit          int
}

type Server struct {
	http.Server
	ledger    *services.LedgerService
	bot       *bot.Dispatcher
	guard     *session.ClearGuard
	listLimit int

	limiter      *ratelimit.Limiter
	security     *security.Guard
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledger:    d.Ledger,
		bot:       d.Bot,
		guard:     d.Guard,
		listLimit: d.ListLimit,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}),
		security:  security.NewGuard(),
	}
	s.tracer = trace.NewMiddleware(s.security.ClientIP)

	api := http.NewServeMux()
	api.HandleFunc("POST /v1/groups/{group}/messages", s.handleMessage)
	api.HandleFunc("POST /v1/groups/{group}/intents", s.handleIntent)
	api.HandleFunc("GET /v1/groups/{group}/balance", s.handleBalance)
	api.HandleFunc("GET /v1/groups/{group}/summary", s.handleSummary)
	api.HandleFunc("GET /v1/groups/{group}/transactions", s.handleList)
	api.HandleFunc("GET /v1/groups/{group}/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("DELETE /v1/groups/{group}/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("POST /v1/groups/{group}/clear", s.handleClearRequest)
	api.HandleFunc("POST /v1/groups/{group}/clear/confirm", s.handleClearConfirm)
	api.HandleFunc("GET /v1/categories", s.handleCategories)
	api.HandleFunc("POST /v1/categories/rename", s.handleRenameCategory)

	limited := s.limiter.Middleware(s.security.ClientIP, func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
	})

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.Handle("/v1/", limited(api))

	var h http.Handler = root
	h = s.security.Middleware(h)
	h = log.RequestIDMiddleware(trace.GetRequestID)(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Metrics is a snapshot of the server's middleware counters.
type Metrics struct {
	Requests        trace.Metrics
	RateLimit       ratelimit.Metrics
	SuspiciousTotal int64
}

func (s *Server) GetMetrics() Metrics {
	return Metrics{
		Requests:        s.tracer.GetMetrics(),
		RateLimit:       s.limiter.GetMetrics(),
		SuspiciousTotal: s.security.SuspiciousCount(),
	}
}

// Shutdown stops the limiter and drains the HTTP server. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
