// Package session ties one client's selected market, wallet and simulators
// together and keeps their timers scoped to what the client is observing.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/governance"
	"github.com/gregtusar/armadex/pkg/marketdata"
	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/orderbook"
	"github.com/gregtusar/armadex/pkg/portfolio"
	"github.com/gregtusar/armadex/pkg/random"
	"github.com/gregtusar/armadex/pkg/storage"
	"github.com/gregtusar/armadex/pkg/tape"
	"github.com/gregtusar/armadex/pkg/toast"
	"github.com/gregtusar/armadex/pkg/trading"
	"github.com/gregtusar/armadex/pkg/vaults"
	"github.com/gregtusar/armadex/pkg/wallet"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownMarket = toast.New(toast.CodeInvalid, "Unknown market", "The selected market is not listed")
	ErrClosed        = toast.New(toast.CodeNotFound, "Session closed", "Start a new session to continue")
)

type Config struct {
	DefaultMarket   models.Market     `mapstructure:"default_market"`
	Markets         []models.Market   `mapstructure:"markets"`
	MarketDataDelay time.Duration     `mapstructure:"market_data_delay"`
	OrderBook       orderbook.Config  `mapstructure:"order_book"`
	Tape            tape.Config       `mapstructure:"tape"`
	Portfolio       portfolio.Config  `mapstructure:"portfolio"`
	Wallet          wallet.Config     `mapstructure:"wallet"`
}

func DefaultConfig() Config {
	return Config{
		DefaultMarket:   "BTC/USDC",
		Markets:         []models.Market{"BTC/USDC", "ETH/USDC", "ARMA/USDC"},
		MarketDataDelay: 500 * time.Millisecond,
		OrderBook:       orderbook.DefaultConfig(),
		Tape:            tape.DefaultConfig(),
		Portfolio:       portfolio.DefaultConfig(),
		Wallet:          wallet.DefaultConfig(),
	}
}

// Deps are shared by every session of a Manager.
type Deps struct {
	Clock  clock.Clock
	Assets marketdata.Assets
	Store  storage.Store
	Rand   *random.Source
	Logger *logrus.Logger
}

type Info struct {
	ID        string            `json:"id"`
	Market    models.Market     `json:"market"`
	Perpetual bool              `json:"perpetual"`
	Kind      models.MarketKind `json:"kind"`
	Connected bool              `json:"connected"`
	CreatedAt time.Time         `json:"created_at"`
}

type Session struct {
	id        string
	cfg       Config
	clock     clock.Clock
	assets    marketdata.Assets
	rng       *random.Source
	logger    *logrus.Logger
	createdAt time.Time

	wallet    *wallet.Wallet
	feed      *marketdata.Feed
	portfolio *portfolio.Book
	board     *governance.Board
	vaults    *vaults.Directory

	// opMu serializes the operations that start and stop timers. Timer
	// callbacks never take it, so Stop may wait on them while it is held.
	opMu sync.Mutex

	mu        sync.RWMutex
	market    models.Market
	perpetual bool
	book      *orderbook.Simulator
	tape      *tape.Tape
	closed    bool

	subMu sync.RWMutex
	subs  subscribers
}

func newSession(id string, cfg Config, deps Deps) *Session {
	rng := deps.Rand.Fork()
	now := deps.Clock.Now()
	store := storage.Namespaced(deps.Store, "session:"+id)

	s := &Session{
		id:        id,
		cfg:       cfg,
		clock:     deps.Clock,
		assets:    deps.Assets,
		rng:       rng,
		logger:    deps.Logger,
		createdAt: now,
		market:    cfg.DefaultMarket,
		wallet:    wallet.New(store, rng.Fork(), deps.Clock, cfg.Wallet, deps.Logger),
		board:     governance.NewBoard(governance.Fixture(now), deps.Logger),
		vaults:    vaults.NewDirectory(vaults.Fixture(now), deps.Logger),
		subs:      subscribers{fns: make(map[int]func(Event))},
	}

	gen := marketdata.NewGenerator(deps.Assets, rng.Fork(), deps.Clock, cfg.MarketDataDelay)
	s.feed = marketdata.NewFeed(gen, deps.Logger)
	s.feed.OnUpdate(func(st marketdata.State) { s.emit(EventMarketData, st) })

	pg := portfolio.NewGenerator(cfg.Portfolio, deps.Assets, rng.Fork(), deps.Clock)
	s.portfolio = portfolio.NewBook(pg, deps.Logger)
	s.portfolio.OnChange(func() { s.emit(EventPortfolio, nil) })

	return s
}

// open restores a persisted wallet and starts the market simulators.
func (s *Session) open(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	restored, err := s.wallet.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore wallet: %w", err)
	}
	s.rebuild(restored)
	return nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:        s.id,
		Market:    s.market,
		Perpetual: s.perpetual,
		Kind:      models.KindOf(s.perpetual),
		Connected: s.wallet.Connected(),
		CreatedAt: s.createdAt,
	}
}

func (s *Session) Markets() []models.Market {
	return append([]models.Market(nil), s.cfg.Markets...)
}

func (s *Session) listed(m models.Market) bool {
	for _, listed := range s.cfg.Markets {
		if listed == m {
			return true
		}
	}
	return false
}

// SelectMarket replaces the observed market, tearing down every timer bound
// to the previous one. Selecting the current market is a no-op.
func (s *Session) SelectMarket(m models.Market) error {
	if !s.listed(m) {
		return ErrUnknownMarket
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.market == m {
		s.mu.Unlock()
		return nil
	}
	s.market = m
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"session_id": s.id, "market": m}).Info("Market selected")
	s.rebuild(s.wallet.Connected())
	return nil
}

// SetPerpetual switches between spot and perpetual views.
func (s *Session) SetPerpetual(perpetual bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.perpetual == perpetual {
		s.mu.Unlock()
		return nil
	}
	s.perpetual = perpetual
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"session_id": s.id, "perpetual": perpetual}).Info("Market kind changed")
	s.rebuild(s.wallet.Connected())
	return nil
}

func (s *Session) Connect(ctx context.Context) (wallet.Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.checkOpen(); err != nil {
		return wallet.Snapshot{}, err
	}

	if err := s.wallet.Connect(ctx); err != nil {
		return wallet.Snapshot{}, err
	}
	market, perpetual := s.selection()
	s.portfolio.Open(market, perpetual)

	snap := s.wallet.Snapshot()
	s.emit(EventWallet, snap)
	return snap, nil
}

func (s *Session) Disconnect(ctx context.Context) (wallet.Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.checkOpen(); err != nil {
		return wallet.Snapshot{}, err
	}

	s.portfolio.Close()
	s.vaults.Reset()
	if err := s.wallet.Disconnect(ctx); err != nil {
		return wallet.Snapshot{}, err
	}

	snap := s.wallet.Snapshot()
	s.emit(EventWallet, snap)
	s.emit(EventPortfolio, nil)
	return snap, nil
}

// rebuild stops every market-scoped timer and starts fresh ones for the
// current selection. Callers hold opMu.
func (s *Session) rebuild(connected bool) {
	s.mu.Lock()
	oldBook, oldTape := s.book, s.tape
	s.book, s.tape = nil, nil
	market, perpetual := s.market, s.perpetual
	s.mu.Unlock()

	if oldBook != nil {
		oldBook.Stop()
	}
	if oldTape != nil {
		oldTape.Stop()
	}
	s.portfolio.Close()

	book := orderbook.NewSimulator(market, s.cfg.OrderBook, s.assets, s.rng.Fork(), s.clock, s.logger)
	book.OnTick(func(snap models.OrderBookSnapshot) { s.emit(EventOrderBook, snap) })
	tp := tape.New(market, s.cfg.Tape, s.assets, s.rng.Fork(), s.clock, s.logger)
	tp.OnTrade(func(tr models.Trade) { s.emit(EventTrade, tr) })

	s.mu.Lock()
	s.book, s.tape = book, tp
	s.mu.Unlock()

	s.feed.Load(market, perpetual)
	book.Start()
	tp.Start()
	if connected {
		s.portfolio.Open(market, perpetual)
	}

	s.emit(EventSession, s.Info())
}

// Close stops every timer. A closed session rejects further changes.
func (s *Session) Close() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	book, tp := s.book, s.tape
	s.mu.Unlock()

	if book != nil {
		book.Stop()
	}
	if tp != nil {
		tp.Stop()
	}
	s.feed.Close()
	s.portfolio.Close()

	s.logger.WithField("session_id", s.id).Info("Session closed")
}

func (s *Session) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Session) selection() (models.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market, s.perpetual
}

func (s *Session) MarketData() marketdata.State {
	return s.feed.State()
}

func (s *Session) OrderBook() (models.OrderBookSnapshot, bool) {
	s.mu.RLock()
	book := s.book
	s.mu.RUnlock()
	if book == nil {
		return models.OrderBookSnapshot{}, false
	}
	return book.Snapshot()
}

func (s *Session) Trades() []models.Trade {
	s.mu.RLock()
	tp := s.tape
	s.mu.RUnlock()
	if tp == nil {
		return nil
	}
	return tp.Trades()
}

func (s *Session) Positions() []models.Position {
	return s.portfolio.Positions()
}

func (s *Session) Orders() []models.Order {
	return s.portfolio.Orders()
}

func (s *Session) ClosePosition(id string) (models.Position, toast.Toast, error) {
	p, err := s.portfolio.ClosePosition(id)
	if err != nil {
		return models.Position{}, toast.Toast{}, err
	}
	return p, toast.Success("Position closed", "Your position has been closed successfully"), nil
}

func (s *Session) CancelOrder(id string) (models.Order, toast.Toast, error) {
	o, err := s.portfolio.CancelOrder(id)
	if err != nil {
		return models.Order{}, toast.Toast{}, err
	}
	return o, toast.Success("Order canceled", "Your order has been canceled successfully"), nil
}

// PlaceOrder validates a ticket against the session's selection. A blank
// ticket market or kind falls back to the session's.
func (s *Session) PlaceOrder(t trading.Ticket) (toast.Toast, error) {
	market, perpetual := s.selection()
	if t.Market == "" {
		t.Market = market
		t.Perpetual = perpetual
	}
	if !s.listed(t.Market) {
		return toast.Toast{}, ErrUnknownMarket
	}

	msg, err := t.Place(s.wallet.Connected())
	if err != nil {
		return toast.Toast{}, err
	}
	s.logger.WithFields(logrus.Fields{
		"session_id": s.id,
		"market":     t.Market,
		"side":       t.Side,
		"type":       t.Type,
	}).Info("Order ticket accepted")
	return msg, nil
}

func (s *Session) Wallet() wallet.Snapshot {
	return s.wallet.Snapshot()
}

// QuickFill sizes a ticket at percent of the wallet's available balance.
func (s *Session) QuickFill(leverage int, price string, percent int) string {
	market, perpetual := s.selection()
	return trading.QuickFill(s.wallet.Balances(), market, perpetual, leverage, price, percent)
}

func (s *Session) Proposals(status models.ProposalStatus) []models.Proposal {
	return s.board.List(status)
}

func (s *Session) Proposal(id string) (models.Proposal, error) {
	return s.board.Get(id)
}

func (s *Session) Vote(id string, choice models.VoteChoice) (toast.Toast, error) {
	return s.board.Vote(id, choice, s.wallet.Connected(), s.wallet.VotingPower())
}

func (s *Session) Vaults(by vaults.SortBy) []models.Vault {
	return s.vaults.List(by)
}

func (s *Session) Vault(id string) (models.Vault, bool, error) {
	v, err := s.vaults.Get(id)
	if err != nil {
		return models.Vault{}, false, err
	}
	return v, s.vaults.IsFollowing(id), nil
}

func (s *Session) ToggleFollow(id string) (bool, toast.Toast, error) {
	return s.vaults.ToggleFollow(id, s.wallet.Connected())
}
