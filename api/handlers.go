package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/session"
	"github.com/gregtusar/armadex/pkg/toast"
	"github.com/gregtusar/armadex/pkg/trading"
)

type sessionResponse struct {
	SessionID string       `json:"session_id"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Session   session.Info `json:"session"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		s.writeActionError(w, fmt.Errorf("create session: %w", err))
		return
	}

	token, expires, err := s.auth.Issue(sess.ID())
	if err != nil {
		s.sessions.Remove(sess.ID())
		s.writeActionError(w, fmt.Errorf("issue token: %w", err))
		return
	}

	s.logger.WithField("session_id", sess.ID()).Info("Session created")
	s.writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: sess.ID(),
		Token:     token,
		ExpiresAt: expires,
		Session:   sess.Info(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.writeJSON(w, http.StatusOK, sess.Info())
}

type updateSessionRequest struct {
	Market    *string `json:"market"`
	Perpetual *bool   `json:"perpetual"`
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req updateSessionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if req.Market != nil {
		market, err := models.ParseMarket(*req.Market)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := sess.SelectMarket(market); err != nil {
			s.writeActionError(w, err)
			return
		}
	}
	if req.Perpetual != nil {
		if err := sess.SetPerpetual(*req.Perpetual); err != nil {
			s.writeActionError(w, err)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.sessions.Remove(sess.ID())
	s.logger.WithField("session_id", sess.ID()).Info("Session removed")
	w.WriteHeader(http.StatusNoContent)
}

type marketsResponse struct {
	Markets  []marketInfo      `json:"markets"`
	Selected models.Market     `json:"selected"`
	Kind     models.MarketKind `json:"kind"`
}

type marketInfo struct {
	Market        models.Market `json:"market"`
	Base          string        `json:"base"`
	Quote         string        `json:"quote"`
	PriceDecimals int32         `json:"price_decimals"`
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	info := sess.Info()
	resp := marketsResponse{Selected: info.Market, Kind: info.Kind}
	for _, m := range sess.Markets() {
		resp.Markets = append(resp.Markets, marketInfo{
			Market:        m,
			Base:          m.Base(),
			Quote:         m.Quote(),
			PriceDecimals: m.PriceDecimals(),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.writeJSON(w, http.StatusOK, newMarketDataView(sess.MarketData()))
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	snap, ok := sess.OrderBook()
	if !ok {
		// no tick has happened yet
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"market": sess.Info().Market, "asks": []bookRowView{}, "bids": []bookRowView{}})
		return
	}
	s.writeJSON(w, http.StatusOK, newOrderBookView(snap))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	market := sess.Info().Market
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"market": market,
		"trades": newTradeViews(market, sess.Trades()),
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": newPositionViews(sess.Positions()),
	})
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	p, msg, err := sess.ClosePosition(r.PathValue("id"))
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"position": p,
		"toast":    msg,
	})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": newOrderViews(sess.Orders()),
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	o, msg, err := sess.CancelOrder(r.PathValue("id"))
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"order": o,
		"toast": msg,
	})
}

type placeOrderResponse struct {
	Toast        toast.Toast `json:"toast"`
	Margin       string      `json:"margin,omitempty"`
	Total        string      `json:"total,omitempty"`
	EstimatedFee string      `json:"estimated_fee,omitempty"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var ticket trading.Ticket
	if !s.decodeJSON(w, r, &ticket) {
		return
	}

	msg, err := sess.PlaceOrder(ticket)
	if err != nil {
		s.writeActionError(w, err)
		return
	}

	resp := placeOrderResponse{Toast: msg, Total: ticket.Total()}
	if ticket.Perpetual || (ticket.Market == "" && sess.Info().Perpetual) {
		resp.Margin = ticket.Margin()
		resp.EstimatedFee = ticket.EstimatedFee()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

var errInvalidPercent = errors.New("percent must be an integer between 0 and 100")

func (s *Server) handleQuickFill(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query()

	percent, err := strconv.Atoi(q.Get("percent"))
	if err != nil || percent < 0 || percent > 100 {
		s.writeError(w, http.StatusBadRequest, errInvalidPercent)
		return
	}

	leverage := trading.DefaultLeverage
	if raw := q.Get("leverage"); raw != "" {
		leverage, err = strconv.Atoi(raw)
		if err != nil || leverage < trading.MinLeverage || leverage > trading.MaxLeverage {
			s.writeActionError(w, trading.ErrInvalidLeverage)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"amount": sess.QuickFill(leverage, q.Get("price"), percent),
	})
}

var errInvalidTotal = errors.New("total must be a number and price a positive number")

// handleAmountFromTotal converts a spot order total into an amount at price.
func (s *Server) handleAmountFromTotal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, ok := trading.AmountFromTotal(q.Get("total"), q.Get("price"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, errInvalidTotal)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"amount": amount})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.writeJSON(w, http.StatusOK, sess.Wallet())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	snap, err := sess.Connect(r.Context())
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	snap, err := sess.Disconnect(r.Context())
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}
