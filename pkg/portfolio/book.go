package portfolio

import (
	"errors"
	"sync"

	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/random"
	"github.com/sirupsen/logrus"
)

var (
	ErrPositionNotFound = errors.New("position not found")
	ErrOrderNotFound    = errors.New("order not found")
)

// Book holds the simulated positions and orders of one connected wallet and
// revalues positions on a timer.
type Book struct {
	gen    *Generator
	cfg    Config
	rng    *random.Source
	clock  clock.Clock
	logger *logrus.Logger

	mu        sync.RWMutex
	positions []models.Position
	orders    []models.Order
	timer     clock.Timer
	onChange  func()
}

func NewBook(gen *Generator, logger *logrus.Logger) *Book {
	return &Book{
		gen:    gen,
		cfg:    gen.cfg,
		rng:    gen.rng,
		clock:  gen.clock,
		logger: logger,
	}
}

func (b *Book) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Open replaces the book with freshly generated positions and orders and
// starts the refresh timer. Any previous timer is stopped first.
func (b *Book) Open(filter models.Market, perpetual bool) {
	b.Close()

	positions := b.gen.Positions(filter, perpetual)
	orders := b.gen.Orders(filter, perpetual)

	b.mu.Lock()
	b.positions = positions
	b.orders = orders
	b.mu.Unlock()

	timer := b.clock.Every(b.cfg.Interval, b.Refresh)
	b.mu.Lock()
	b.timer = timer
	b.mu.Unlock()

	b.logger.WithFields(logrus.Fields{
		"market":    filter,
		"perpetual": perpetual,
		"positions": len(positions),
		"orders":    len(orders),
	}).Debug("Portfolio opened")
	b.notify()
}

// Close stops the refresh timer and empties the book.
func (b *Book) Close() {
	b.mu.Lock()
	timer := b.timer
	b.timer = nil
	b.positions = nil
	b.orders = nil
	b.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
}

// Refresh applies an independent multiplicative jitter to every mark price.
func (b *Book) Refresh() {
	b.mu.Lock()
	for i := range b.positions {
		p := &b.positions[i]
		mark := p.MarkPrice * (1 + b.rng.Uniform(-b.cfg.MarkJitter, b.cfg.MarkJitter))
		Revalue(p, mark)
	}
	b.mu.Unlock()

	b.notify()
}

func (b *Book) Positions() []models.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Position(nil), b.positions...)
}

func (b *Book) Orders() []models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Order(nil), b.orders...)
}

// ClosePosition removes the position immediately. It cannot be undone.
func (b *Book) ClosePosition(id string) (models.Position, error) {
	b.mu.Lock()
	idx := -1
	for i, p := range b.positions {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return models.Position{}, ErrPositionNotFound
	}
	closed := b.positions[idx]
	b.positions = append(b.positions[:idx:idx], b.positions[idx+1:]...)
	b.mu.Unlock()

	b.logger.WithField("position_id", id).Info("Position closed")
	b.notify()
	return closed, nil
}

// CancelOrder removes the order and returns it marked canceled.
func (b *Book) CancelOrder(id string) (models.Order, error) {
	b.mu.Lock()
	idx := -1
	for i, o := range b.orders {
		if o.ID == id && o.Status.Cancelable() {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return models.Order{}, ErrOrderNotFound
	}
	canceled := b.orders[idx]
	canceled.Status = models.OrderStatusCanceled
	b.orders = append(b.orders[:idx:idx], b.orders[idx+1:]...)
	b.mu.Unlock()

	b.logger.WithField("order_id", id).Info("Order canceled")
	b.notify()
	return canceled, nil
}

func (b *Book) notify() {
	b.mu.RLock()
	fn := b.onChange
	b.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
