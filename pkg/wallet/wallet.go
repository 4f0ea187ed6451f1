// Package wallet is the mock wallet: a fabricated address and balances that
// persist across restarts through a storage.Store.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/format"
	"github.com/gregtusar/armadex/pkg/random"
	"github.com/gregtusar/armadex/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	KeyConnected = "walletConnected"
	KeyAddress   = "walletAddress"
	KeyBalances  = "walletBalances"
)

// VotingAsset is the balance that counts as governance voting power.
const VotingAsset = "ARMA"

type grant struct {
	asset  string
	max    float64
	places int32
}

// Balances are granted in this order with these ceilings and precisions.
var grants = []grant{
	{"USDC", 10000, 2},
	{"ETH", 10, 4},
	{"BTC", 1, 6},
	{"ARMA", 5000, 2},
}

// Balances maps asset to amount; JSON encodes amounts as decimal strings.
type Balances map[string]decimal.Decimal

func ZeroBalances() Balances {
	b := make(Balances, len(grants))
	for _, g := range grants {
		b[g.asset] = decimal.Zero
	}
	return b
}

func (b Balances) clone() Balances {
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

type Config struct {
	ConnectDelay time.Duration `mapstructure:"connect_delay"`
}

func DefaultConfig() Config {
	return Config{ConnectDelay: 500 * time.Millisecond}
}

type Snapshot struct {
	Connected    bool     `json:"connected"`
	Address      string   `json:"address,omitempty"`
	ShortAddress string   `json:"short_address,omitempty"`
	Balances     Balances `json:"balances"`
}

type Wallet struct {
	store  storage.Store
	rng    *random.Source
	clock  clock.Clock
	cfg    Config
	logger *logrus.Logger

	mu        sync.RWMutex
	connected bool
	address   string
	balances  Balances
}

func New(store storage.Store, rng *random.Source, clk clock.Clock, cfg Config, logger *logrus.Logger) *Wallet {
	return &Wallet{
		store:    store,
		rng:      rng,
		clock:    clk,
		cfg:      cfg,
		logger:   logger,
		balances: ZeroBalances(),
	}
}

// Connect waits out the simulated handshake, then fabricates and persists an
// address and balances. A canceled ctx leaves the wallet unchanged.
func (w *Wallet) Connect(ctx context.Context) error {
	if err := clock.Sleep(ctx, w.clock, w.cfg.ConnectDelay); err != nil {
		return fmt.Errorf("wallet connect: %w", err)
	}

	address := w.newAddress()
	balances := make(Balances, len(grants))
	for _, g := range grants {
		balances[g.asset] = decimal.NewFromFloat(w.rng.Float64() * g.max).Round(g.places)
	}

	raw, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("failed to encode balances: %w", err)
	}
	// The connected flag goes last so a partial write never restores.
	writes := []struct{ key, value string }{
		{KeyBalances, string(raw)},
		{KeyAddress, address},
		{KeyConnected, "true"},
	}
	for i, kv := range writes {
		if err := w.store.Set(ctx, kv.key, kv.value); err != nil {
			for _, done := range writes[:i] {
				if derr := w.store.Delete(ctx, done.key); derr != nil {
					w.logger.WithError(derr).WithField("key", done.key).Error("Failed to roll back wallet key")
				}
			}
			return fmt.Errorf("persist %s: %w", kv.key, err)
		}
	}

	w.mu.Lock()
	w.connected = true
	w.address = address
	w.balances = balances
	w.mu.Unlock()

	w.logger.WithField("address", format.ShortAddress(address)).Info("Wallet connected")
	return nil
}

// Disconnect removes all three persisted keys and zeroes every balance. If
// the connected flag cannot be removed the wallet stays connected.
func (w *Wallet) Disconnect(ctx context.Context) error {
	if err := w.store.Delete(ctx, KeyConnected); err != nil {
		return fmt.Errorf("delete %s: %w", KeyConnected, err)
	}

	w.mu.Lock()
	w.connected = false
	w.address = ""
	w.balances = ZeroBalances()
	w.mu.Unlock()

	var errs []error
	for _, key := range []string{KeyAddress, KeyBalances} {
		if err := w.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	w.logger.Info("Wallet disconnected")
	return nil
}

// Restore reinstates a persisted connection. Unreadable balances are logged
// and replaced with zeros; the wallet still counts as connected.
func (w *Wallet) Restore(ctx context.Context) (bool, error) {
	flag, _, err := w.store.Get(ctx, KeyConnected)
	if err != nil {
		return false, err
	}
	address, ok, err := w.store.Get(ctx, KeyAddress)
	if err != nil {
		return false, err
	}
	if flag != "true" || !ok || address == "" {
		return false, nil
	}

	balances := ZeroBalances()
	raw, ok, err := w.store.Get(ctx, KeyBalances)
	if err != nil {
		return false, err
	}
	if ok {
		var stored Balances
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			w.logger.WithError(err).Error("Failed to parse stored balances")
		} else {
			for asset, v := range stored {
				balances[asset] = v
			}
		}
	}

	w.mu.Lock()
	w.connected = true
	w.address = address
	w.balances = balances
	w.mu.Unlock()

	w.logger.WithField("address", format.ShortAddress(address)).Info("Wallet restored")
	return true, nil
}

func (w *Wallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *Wallet) Address() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.address
}

func (w *Wallet) Balances() Balances {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balances.clone()
}

// Balance returns the amount held of asset, zero if untracked.
func (w *Wallet) Balance(asset string) decimal.Decimal {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balances[strings.ToUpper(asset)]
}

func (w *Wallet) VotingPower() float64 {
	return w.Balance(VotingAsset).InexactFloat64()
}

func (w *Wallet) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Snapshot{
		Connected: w.connected,
		Address:   w.address,
		Balances:  w.balances.clone(),
	}
	if w.address != "" {
		s.ShortAddress = format.ShortAddress(w.address)
	}
	return s
}

func (w *Wallet) newAddress() string {
	const hexDigits = "0123456789abcdef"
	var b strings.Builder
	b.Grow(42)
	b.WriteString("0x")
	for i := 0; i < 40; i++ {
		b.WriteByte(hexDigits[w.rng.IntN(16)])
	}
	return b.String()
}
