package api

import (
	"net/http"

	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/session"
	"github.com/gregtusar/armadex/pkg/vaults"
)

func (s *Server) handleProposals(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var status models.ProposalStatus
	if raw := r.URL.Query().Get("status"); raw != "" && raw != "all" {
		parsed, err := models.ParseProposalStatus(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		status = parsed
	}

	now := s.clock.Now()
	proposals := sess.Proposals(status)
	views := make([]proposalView, len(proposals))
	for i, p := range proposals {
		views[i] = newProposalView(p, now)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"proposals": views})
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	p, err := sess.Proposal(r.PathValue("id"))
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newProposalView(p, s.clock.Now()))
}

type voteRequest struct {
	Choice models.VoteChoice `json:"choice"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req voteRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	msg, err := sess.Vote(id, req.Choice)
	if err != nil {
		s.writeActionError(w, err)
		return
	}

	p, err := sess.Proposal(id)
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"toast":    msg,
		"proposal": newProposalView(p, s.clock.Now()),
	})
}

func (s *Server) handleVaults(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	by, err := vaults.ParseSortBy(r.URL.Query().Get("sort"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	list := sess.Vaults(by)
	views := make([]vaultView, 0, len(list))
	for _, v := range list {
		_, following, err := sess.Vault(v.ID)
		if err != nil {
			s.writeActionError(w, err)
			return
		}
		views = append(views, newVaultView(v, following))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"vaults": views})
}

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	v, following, err := sess.Vault(r.PathValue("id"))
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newVaultView(v, following))
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	following, msg, err := sess.ToggleFollow(r.PathValue("id"))
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"following": following,
		"toast":     msg,
	})
}
