package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gregtusar/armadex/pkg/auth"
	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/portfolio"
	"github.com/gregtusar/armadex/pkg/session"
	"github.com/gregtusar/armadex/pkg/toast"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Port           int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	RateLimit      RateLimit
}

type Server struct {
	sessions *session.Manager
	auth     *auth.Authenticator
	clock    clock.Clock
	opts     Options
	logger   *logrus.Logger

	limiter    *limiter
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

func NewServer(sessions *session.Manager, authn *auth.Authenticator, clk clock.Clock, opts Options, logger *logrus.Logger) *Server {
	s := &Server{
		sessions: sessions,
		auth:     authn,
		clock:    clk,
		opts:     opts,
		logger:   logger,
	}
	if opts.RateLimit.Enabled {
		s.limiter = newLimiter(opts.RateLimit, clk)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return s.originAllowed(r.Header.Get("Origin")) },
	}
	return s
}

// Handler returns the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)

	mux.HandleFunc("GET /api/session", s.withSession(s.handleGetSession))
	mux.HandleFunc("PUT /api/session", s.withSession(s.handleUpdateSession))
	mux.HandleFunc("DELETE /api/session", s.withSession(s.handleDeleteSession))

	mux.HandleFunc("GET /api/markets", s.withSession(s.handleMarkets))
	mux.HandleFunc("GET /api/marketdata", s.withSession(s.handleMarketData))
	mux.HandleFunc("GET /api/orderbook", s.withSession(s.handleOrderBook))
	mux.HandleFunc("GET /api/trades", s.withSession(s.handleTrades))

	mux.HandleFunc("GET /api/positions", s.withSession(s.handlePositions))
	mux.HandleFunc("DELETE /api/positions/{id}", s.withSession(s.handleClosePosition))
	mux.HandleFunc("GET /api/orders", s.withSession(s.handleOrders))
	mux.HandleFunc("POST /api/orders", s.withSession(s.handlePlaceOrder))
	mux.HandleFunc("GET /api/orders/quickfill", s.withSession(s.handleQuickFill))
	mux.HandleFunc("GET /api/orders/amount", s.handleAmountFromTotal)
	mux.HandleFunc("DELETE /api/orders/{id}", s.withSession(s.handleCancelOrder))

	mux.HandleFunc("GET /api/wallet", s.withSession(s.handleWallet))
	mux.HandleFunc("POST /api/wallet/connect", s.withSession(s.handleConnect))
	mux.HandleFunc("POST /api/wallet/disconnect", s.withSession(s.handleDisconnect))

	mux.HandleFunc("GET /api/proposals", s.withSession(s.handleProposals))
	mux.HandleFunc("GET /api/proposals/{id}", s.withSession(s.handleProposal))
	mux.HandleFunc("POST /api/proposals/{id}/vote", s.withSession(s.handleVote))

	mux.HandleFunc("GET /api/vaults", s.withSession(s.handleVaults))
	mux.HandleFunc("GET /api/vaults/{id}", s.withSession(s.handleVault))
	mux.HandleFunc("POST /api/vaults/{id}/follow", s.withSession(s.handleFollow))

	mux.HandleFunc("GET /api/stream", s.withSession(s.handleStream))

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = s.limiter.middleware(handler, s)
	}
	return s.corsMiddleware(handler)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.opts.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.logger.Infof("Starting API server on port %d", s.opts.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the bearer token to a live session, rebuilding it
// after a restart.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.FromRequest(r)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, err)
			return
		}
		claims, err := s.auth.Parse(token)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, err)
			return
		}
		sess, err := s.sessions.Resume(r.Context(), claims.SessionID())
		if err != nil {
			s.logger.WithError(err).WithField("session_id", claims.SessionID()).Error("Failed to resume session")
			s.writeError(w, http.StatusInternalServerError, errors.New("session unavailable"))
			return
		}
		h(w, r, sess)
	}
}

type errorResponse struct {
	Error string       `json:"error"`
	Toast *toast.Toast `json:"toast,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeActionError maps a failed user action to a status. Validation
// failures carry their toast; anything unrecognized is a 500.
func (s *Server) writeActionError(w http.ResponseWriter, err error) {
	if t, code, ok := toast.FromError(err); ok {
		status := http.StatusBadRequest
		switch code {
		case toast.CodeUnauthorized:
			status = http.StatusUnauthorized
		case toast.CodeNotFound:
			status = http.StatusNotFound
		}
		s.writeJSON(w, status, errorResponse{Error: t.Title, Toast: &t})
		return
	}

	switch {
	case errors.Is(err, portfolio.ErrPositionNotFound), errors.Is(err, portfolio.ErrOrderNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusRequestTimeout, err)
	default:
		s.logger.WithError(err).Error("Request failed")
		s.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.clock.Now().UTC(),
		"sessions":  s.sessions.Len(),
	}

	s.writeJSON(w, http.StatusOK, response)
}
