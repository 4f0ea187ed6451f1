package models

import (
	"fmt"
	"time"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalActive   ProposalStatus = "active"
	ProposalPassed   ProposalStatus = "passed"
	ProposalRejected ProposalStatus = "rejected"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalPending, ProposalActive, ProposalPassed, ProposalRejected:
		return true
	}
	return false
}

func ParseProposalStatus(s string) (ProposalStatus, error) {
	status := ProposalStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown proposal status %q", s)
	}
	return status, nil
}

type ProposalCategory string

const (
	CategoryProtocol   ProposalCategory = "protocol"
	CategoryTreasury   ProposalCategory = "treasury"
	CategoryGovernance ProposalCategory = "governance"
	CategoryCommunity  ProposalCategory = "community"
)

type VoteChoice string

const (
	VoteFor     VoteChoice = "for"
	VoteAgainst VoteChoice = "against"
	VoteAbstain VoteChoice = "abstain"
)

func (v VoteChoice) Valid() bool {
	switch v {
	case VoteFor, VoteAgainst, VoteAbstain:
		return true
	}
	return false
}

type Proposal struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Proposer     string           `json:"proposer"`
	Status       ProposalStatus   `json:"status"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	VotesFor     float64          `json:"votes_for"`
	VotesAgainst float64          `json:"votes_against"`
	VotesAbstain float64          `json:"votes_abstain"`
	Quorum       float64          `json:"quorum"`
	Category     ProposalCategory `json:"category"`
	UserVoted    *VoteChoice      `json:"user_voted,omitempty"`
}

func (p Proposal) TotalVotes() float64 {
	return p.VotesFor + p.VotesAgainst + p.VotesAbstain
}

// Tally returns the stored vote count for one choice.
func (p Proposal) Tally(choice VoteChoice) float64 {
	switch choice {
	case VoteFor:
		return p.VotesFor
	case VoteAgainst:
		return p.VotesAgainst
	case VoteAbstain:
		return p.VotesAbstain
	}
	return 0
}
