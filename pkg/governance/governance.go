// Package governance holds the proposal fixture and records a wallet's votes.
package governance

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gregtusar/armadex/pkg/format"
	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/toast"
	"github.com/sirupsen/logrus"
)

var (
	ErrWalletNotConnected      = toast.New(toast.CodeUnauthorized, "Wallet not connected", "Please connect your wallet to vote")
	ErrInsufficientVotingPower = toast.New(toast.CodeInvalid, "Insufficient voting power", "You need ARMA tokens to vote on proposals")
	ErrProposalNotFound        = toast.New(toast.CodeNotFound, "Proposal not found", "The selected proposal does not exist")
	ErrInvalidVote             = toast.New(toast.CodeInvalid, "Invalid vote", "Vote must be for, against or abstain")
)

const day = 24 * time.Hour

// Fixture returns the five demo proposals with times relative to now.
func Fixture(now time.Time) []models.Proposal {
	voted := func(v models.VoteChoice) *models.VoteChoice { return &v }

	return []models.Proposal{
		{
			ID:           "prop-001",
			Title:        "Add New Trading Pairs: SOL/USDC and DOT/USDC",
			Description:  "Expand the listed pairs with Solana (SOL) and Polkadot (DOT) against USDC, backed by liquidity mining incentives of 50,000 ARMA tokens over 3 months.",
			Proposer:     "0xe3a45b078a6f1f...a1b",
			Status:       models.ProposalActive,
			StartTime:    now.Add(-2 * day),
			EndTime:      now.Add(3 * day),
			VotesFor:     1250000,
			VotesAgainst: 450000,
			VotesAbstain: 125000,
			Quorum:       2000000,
			Category:     models.CategoryProtocol,
		},
		{
			ID:           "prop-002",
			Title:        "Reduce Trading Fees for High Volume Traders",
			Description:  "Replace the flat 0.1% fee with tiers: >$100k/month 0.08%, >$1M/month 0.06%, >$10M/month 0.04%.",
			Proposer:     "0x7a1b2c3d4e5f...890",
			Status:       models.ProposalPassed,
			StartTime:    now.Add(-10 * day),
			EndTime:      now.Add(-3 * day),
			VotesFor:     1750000,
			VotesAgainst: 250000,
			VotesAbstain: 50000,
			Quorum:       1500000,
			Category:     models.CategoryProtocol,
			UserVoted:    voted(models.VoteFor),
		},
		{
			ID:          "prop-003",
			Title:       "Deploy ArmaDEX on Arbitrum Network",
			Description: "Deploy the exchange contracts on Arbitrum for lower gas fees and higher throughput. Estimated cost $120,000 for development, testing and audits over 2 months.",
			Proposer:    "0x3d4e5f6a7b8c...901",
			Status:      models.ProposalPending,
			StartTime:   now.Add(1 * day),
			EndTime:     now.Add(8 * day),
			Quorum:      2000000,
			Category:    models.CategoryProtocol,
		},
		{
			ID:           "prop-004",
			Title:        "Allocate 500,000 ARMA for Marketing Campaign",
			Description:  "Allocate 500,000 ARMA from the treasury to a six month marketing campaign with monthly reporting.",
			Proposer:     "0x2c3d4e5f6a7b...129",
			Status:       models.ProposalRejected,
			StartTime:    now.Add(-15 * day),
			EndTime:      now.Add(-8 * day),
			VotesFor:     900000,
			VotesAgainst: 1200000,
			VotesAbstain: 75000,
			Quorum:       1500000,
			Category:     models.CategoryTreasury,
			UserVoted:    voted(models.VoteAgainst),
		},
		{
			ID:           "prop-005",
			Title:        "Implement Multi-Chain Bridge Security Upgrade",
			Description:  "Add a 2/3 threshold signature scheme, extra oracle validation and a 24-hour timelock for large bridge transfers. Estimated $180,000 development plus $50,000 audits.",
			Proposer:     "0x9a8b7c6d5e4f...321",
			Status:       models.ProposalActive,
			StartTime:    now.Add(-1 * day),
			EndTime:      now.Add(6 * day),
			VotesFor:     950000,
			VotesAgainst: 150000,
			VotesAbstain: 75000,
			Quorum:       1500000,
			Category:     models.CategoryGovernance,
		},
	}
}

// Board is one wallet's view of the proposals. Votes are local: tallies are
// never updated by Vote.
type Board struct {
	logger *logrus.Logger

	mu        sync.RWMutex
	proposals []models.Proposal
	votes     map[string]models.VoteChoice
}

func NewBoard(proposals []models.Proposal, logger *logrus.Logger) *Board {
	return &Board{
		logger:    logger,
		proposals: proposals,
		votes:     make(map[string]models.VoteChoice),
	}
}

// List returns proposals in fixture order, optionally restricted to status.
func (b *Board) List(status models.ProposalStatus) []models.Proposal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Proposal, 0, len(b.proposals))
	for _, p := range b.proposals {
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, b.withVote(p))
	}
	return out
}

func (b *Board) Get(id string) (models.Proposal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, p := range b.proposals {
		if p.ID == id {
			return b.withVote(p), nil
		}
	}
	return models.Proposal{}, ErrProposalNotFound
}

// withVote overlays the local vote on the fixture's UserVoted.
func (b *Board) withVote(p models.Proposal) models.Proposal {
	if v, ok := b.votes[p.ID]; ok {
		p.UserVoted = &v
	} else if p.UserVoted != nil {
		v := *p.UserVoted
		p.UserVoted = &v
	}
	return p
}

// Vote records choice for the proposal. Checks run in order: connection,
// voting power, proposal, choice.
func (b *Board) Vote(id string, choice models.VoteChoice, connected bool, votingPower float64) (toast.Toast, error) {
	if !connected {
		return toast.Toast{}, ErrWalletNotConnected
	}
	if votingPower <= 0 {
		return toast.Toast{}, ErrInsufficientVotingPower
	}
	if _, err := b.Get(id); err != nil {
		return toast.Toast{}, err
	}
	if !choice.Valid() {
		return toast.Toast{}, ErrInvalidVote
	}

	b.mu.Lock()
	b.votes[id] = choice
	b.mu.Unlock()

	b.logger.WithFields(logrus.Fields{
		"proposal_id":  id,
		"choice":       choice,
		"voting_power": votingPower,
	}).Info("Vote recorded")

	return toast.Success("Vote cast successfully", fmt.Sprintf("You have voted %s proposal %s", choice, id)), nil
}

// Progress is the share of quorum reached, capped at 100.
func Progress(p models.Proposal) float64 {
	if p.Quorum <= 0 {
		return 100
	}
	return math.Min(p.TotalVotes()/p.Quorum*100, 100)
}

// VotePercentage is choice's share of all votes cast, or 0 when none were.
func VotePercentage(p models.Proposal, choice models.VoteChoice) float64 {
	total := p.TotalVotes()
	if total == 0 {
		return 0
	}
	return p.Tally(choice) / total * 100
}

func TimeStatus(p models.Proposal, now time.Time, loc *time.Location) string {
	switch p.Status {
	case models.ProposalPending:
		n := ceilDays(p.StartTime.Sub(now))
		return fmt.Sprintf("Starts in %d %s", n, plural(n))
	case models.ProposalActive:
		n := ceilDays(p.EndTime.Sub(now))
		return fmt.Sprintf("%d %s left", n, plural(n))
	case models.ProposalPassed, models.ProposalRejected:
		return "Ended " + format.Date(p.EndTime, loc)
	}
	return ""
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

func plural(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
