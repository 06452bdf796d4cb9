// ABOUTME: Account listing and moderation handlers
// ABOUTME: Listing is inclusive over the allowed and blocked selections

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/2389/relay-console/internal/relay"
)

func parseBoolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	relayID := r.URL.Query().Get("relay_id")
	if relayID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "relay_id required")
		return
	}

	filter := relay.AccountFilter{
		IncludeAllowed: parseBoolParam(r, "allowed"),
		IncludeBlocked: parseBoolParam(r, "blocked"),
	}

	list, err := s.registry.List(r.Context(), relayID, filter)
	if err != nil {
		s.sendError(w, err)
		return
	}
	if list == nil {
		list = []*relay.Account{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

type upsertAccountRequest struct {
	RelayID string             `json:"relayId"`
	Pubkey  string             `json:"pubkey"`
	Patch   relay.AccountPatch `json:"patch"`
}

func (s *Server) handleUpsertAccount(w http.ResponseWriter, r *http.Request) {
	var req upsertAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RelayID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "relayId required")
		return
	}

	account, err := s.registry.Upsert(r.Context(), req.RelayID, req.Pubkey, req.Patch)
	if err != nil {
		s.sendError(w, err)
		return
	}
	if err := s.syncLegacyLists(r.Context(), req.RelayID); err != nil {
		s.sendError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	relayID := r.PathValue("relayID")
	pubkey := r.PathValue("pubkey")

	if err := s.registry.Remove(r.Context(), relayID, pubkey); err != nil {
		s.sendError(w, err)
		return
	}
	if err := s.syncLegacyLists(r.Context(), relayID); err != nil {
		s.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// syncLegacyLists regenerates the stored relay's flat allow/block lists
// from account state. Without this a key dropped from the accounts table
// would stay blocked (or allowed) through the stale list entry.
func (s *Server) syncLegacyLists(ctx context.Context, relayID string) error {
	stored, err := s.store.GetRelay(ctx, relayID)
	if err != nil {
		return err
	}

	accounts, err := s.registry.List(ctx, relayID, relay.AccountFilter{
		IncludeAllowed: true,
		IncludeBlocked: true,
	})
	if err != nil {
		return err
	}

	stored.Config.SyncLegacyLists(accounts)
	return s.store.UpdateRelay(ctx, stored)
}
