// ABOUTME: Relay CRUD handlers plus the public info and join endpoints
// ABOUTME: Legacy allow/block lists migrate into accounts on every write

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/2389/relay-console/internal/relay"
	"github.com/2389/relay-console/internal/wallet"
)

func (s *Server) handleCreateRelay(w http.ResponseWriter, r *http.Request) {
	var req relay.Relay
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if err := req.Validate(); err != nil {
		s.sendError(w, err)
		return
	}
	if req.Config.Wallet != "" {
		if _, err := wallet.ValidateTarget(req.Config.Wallet); err != nil {
			s.sendJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	if err := s.store.CreateRelay(r.Context(), &req); err != nil {
		s.sendError(w, err)
		return
	}
	if err := s.registry.Migrate(r.Context(), req.ID, &req.Config); err != nil {
		s.sendError(w, err)
		return
	}

	s.logger.Info("relay created", "relay_id", req.ID, "name", req.Meta.Name)
	s.writeJSON(w, http.StatusCreated, &req)
}

func (s *Server) handleListRelays(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListRelays(r.Context())
	if err != nil {
		s.sendError(w, err)
		return
	}
	if list == nil {
		list = []*relay.Relay{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRelay(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.GetRelay(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleUpdateRelay(w http.ResponseWriter, r *http.Request) {
	var req relay.Relay
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = r.PathValue("id")

	if err := req.Validate(); err != nil {
		s.sendError(w, err)
		return
	}
	if req.Config.Wallet != "" {
		if _, err := wallet.ValidateTarget(req.Config.Wallet); err != nil {
			s.sendJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	if err := s.store.UpdateRelay(r.Context(), &req); err != nil {
		s.sendError(w, err)
		return
	}
	if err := s.registry.Migrate(r.Context(), req.ID, &req.Config); err != nil {
		s.sendError(w, err)
		return
	}

	// Respond with what was stored: the answer is authoritative.
	stored, err := s.store.GetRelay(r.Context(), req.ID)
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteRelay(w http.ResponseWriter, r *http.Request) {
	relayID := r.PathValue("id")
	if err := s.store.DeleteRelay(r.Context(), relayID); err != nil {
		s.sendError(w, err)
		return
	}

	s.logger.Info("relay deleted", "relay_id", relayID)
	w.WriteHeader(http.StatusNoContent)
}

// handleRelayInfo serves the public relay information document.
func (s *Server) handleRelayInfo(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.GetRelay(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stored.Info())
}

type joinRequest struct {
	Pubkey  string `json:"pubkey"`
	Invoice string `json:"invoice"`
}

// handleJoin settles a join fee: the invoice must cover the relay's
// configured amount, and the paying key is marked paid.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Pubkey == "" || req.Invoice == "" {
		s.sendJSONError(w, http.StatusBadRequest, "pubkey and invoice required")
		return
	}

	stored, err := s.store.GetRelay(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendError(w, err)
		return
	}
	// A zero fee with the flag on is still free: nothing to settle.
	if stored.IsFreeToJoin() {
		s.sendJSONError(w, http.StatusBadRequest, "relay is free to join")
		return
	}

	bolt11, err := wallet.VerifySettlement(req.Invoice, stored.Config.PaidToJoin.AmountSats)
	if err != nil {
		s.sendJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	paidSats := bolt11.MSatoshi / 1000
	if err := s.store.MarkAccountPaid(r.Context(), stored.ID, req.Pubkey, paidSats); err != nil {
		s.sendError(w, err)
		return
	}

	s.logger.Info("join fee settled",
		"relay_id", stored.ID,
		"pubkey", req.Pubkey,
		"sats", paidSats,
	)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"pubkey": req.Pubkey,
		"sats":   paidSats,
		"status": fmt.Sprintf("joined %s", stored.Meta.Name),
	})
}
