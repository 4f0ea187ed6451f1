// Package vaults holds the copy-trading vault fixture and a wallet's follow
// set.
package vaults

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/toast"
	"github.com/sirupsen/logrus"
)

var (
	ErrWalletNotConnected = toast.New(toast.CodeUnauthorized, "Wallet not connected", "Please connect your wallet to follow vaults")
	ErrVaultNotFound      = toast.New(toast.CodeNotFound, "Vault not found", "The selected vault does not exist")
)

type SortBy string

const (
	SortDefault     SortBy = ""
	SortFollowing   SortBy = "following"
	SortSubscribers SortBy = "trending"
	SortAPY         SortBy = "highest-apy"
)

func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(s) {
	case SortDefault, SortFollowing, SortSubscribers, SortAPY:
		return SortBy(s), nil
	case "all":
		return SortDefault, nil
	}
	return "", fmt.Errorf("unknown vault sort %q", s)
}

const day = 24 * time.Hour

// Fixture returns the demo vaults with trade times relative to now.
func Fixture(now time.Time) []models.Vault {
	exit := func(v float64) *float64 { return &v }
	ago := func(days float64) time.Time { return now.Add(-time.Duration(days * float64(day))) }

	return []models.Vault{
		{
			ID:          "vault-1",
			Name:        "Alpha Strategies",
			Trader:      "CryptoWhale",
			TraderID:    "0x1a2b3c4d5e6f",
			Description: "Focused on BTC and ETH with conservative leverage and high win rate",
			APY:         127.5,
			TVL:         1235000,
			WinRate:     76,
			Subscribers: 243,
			Fee:         10,
			Trades: []models.VaultTrade{
				{Market: "BTC/USDC", Side: models.SideLong, Leverage: 5, EntryPrice: 62451, ExitPrice: exit(65280), Size: 0.5, PnL: 1414.5, PnLPercent: 4.53, Timestamp: ago(2), Status: models.VaultTradeClosed},
				{Market: "ETH/USDC", Side: models.SideLong, Leverage: 3, EntryPrice: 3250, Size: 5, PnL: 625, PnLPercent: 3.85, Timestamp: ago(0.5), Status: models.VaultTradeOpen},
			},
		},
		{
			ID:          "vault-2",
			Name:        "BitMaster Fund",
			Trader:      "TradeMaster",
			TraderID:    "0x7e8f9d2c1a5b",
			Description: "High volume trading with advanced technical analysis and risk management",
			APY:         96.3,
			TVL:         875000,
			WinRate:     68,
			Subscribers: 189,
			Fee:         12,
			Trades: []models.VaultTrade{
				{Market: "BTC/USDC", Side: models.SideShort, Leverage: 10, EntryPrice: 67800, ExitPrice: exit(65420), Size: 0.3, PnL: 714, PnLPercent: 3.5, Timestamp: ago(1), Status: models.VaultTradeClosed},
				{Market: "ETH/USDC", Side: models.SideLong, Leverage: 5, EntryPrice: 3180, ExitPrice: exit(3320), Size: 2, PnL: 140, PnLPercent: 2.2, Timestamp: ago(3), Status: models.VaultTradeClosed},
			},
		},
		{
			ID:          "vault-3",
			Name:        "ARMA Momentum",
			Trader:      "ARMABull",
			TraderID:    "0x3c4d5e6f7a8b",
			Description: "Specializing in ARMA token with high conviction long positions",
			APY:         215.8,
			TVL:         520000,
			WinRate:     72,
			Subscribers: 156,
			Fee:         15,
			Trades: []models.VaultTrade{
				{Market: "ARMA/USDC", Side: models.SideLong, Leverage: 15, EntryPrice: 4.2, ExitPrice: exit(5.1), Size: 5000, PnL: 4500, PnLPercent: 21.4, Timestamp: ago(5), Status: models.VaultTradeClosed},
				{Market: "BTC/USDC", Side: models.SideLong, Leverage: 7, EntryPrice: 64200, Size: 0.2, PnL: -420, PnLPercent: -2.3, Timestamp: ago(0.2), Status: models.VaultTradeOpen},
			},
		},
	}
}

// Directory lists vaults and tracks which ones the wallet follows. The
// follow set lives in memory only.
type Directory struct {
	vaults []models.Vault
	logger *logrus.Logger

	mu        sync.RWMutex
	following map[string]bool
}

func NewDirectory(vaults []models.Vault, logger *logrus.Logger) *Directory {
	return &Directory{
		vaults:    vaults,
		logger:    logger,
		following: make(map[string]bool),
	}
}

// List returns copies in the requested order; the fixture itself is never
// reordered.
func (d *Directory) List(by SortBy) []models.Vault {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.Vault, 0, len(d.vaults))
	for _, v := range d.vaults {
		if by == SortFollowing && !d.following[v.ID] {
			continue
		}
		out = append(out, v.Clone())
	}

	switch by {
	case SortSubscribers:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Subscribers > out[j].Subscribers })
	case SortAPY:
		sort.SliceStable(out, func(i, j int) bool { return out[i].APY > out[j].APY })
	case SortDefault, SortFollowing:
	}
	return out
}

func (d *Directory) Get(id string) (models.Vault, error) {
	for _, v := range d.vaults {
		if v.ID == id {
			return v.Clone(), nil
		}
	}
	return models.Vault{}, ErrVaultNotFound
}

func (d *Directory) IsFollowing(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.following[id]
}

// ToggleFollow flips the follow state and reports the new one.
func (d *Directory) ToggleFollow(id string, connected bool) (bool, toast.Toast, error) {
	if !connected {
		return false, toast.Toast{}, ErrWalletNotConnected
	}
	if _, err := d.Get(id); err != nil {
		return false, toast.Toast{}, err
	}

	d.mu.Lock()
	following := !d.following[id]
	if following {
		d.following[id] = true
	} else {
		delete(d.following, id)
	}
	d.mu.Unlock()

	d.logger.WithFields(logrus.Fields{"vault_id": id, "following": following}).Info("Vault follow toggled")

	if following {
		return true, toast.Success("Following", "You are now following this vault"), nil
	}
	return false, toast.Success("Unfollowed", "You have unfollowed this vault"), nil
}

// Reset drops the follow set, as on disconnect.
func (d *Directory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.following = make(map[string]bool)
}
