// ABOUTME: Event admission endpoint for relay instances
// ABOUTME: Runs the policy engine and records storage for admitted events

package api

import (
	"encoding/json"
	"net/http"

	"github.com/nbd-wtf/go-nostr"
)

type submitEventRequest struct {
	Event         *nostr.Event `json:"event"`
	Authenticated bool         `json:"authenticated"`
}

type submitEventResponse struct {
	Decision string `json:"decision"`
	Admitted bool   `json:"admitted"`
}

// handleSubmitEvent decides admission for one event on behalf of a
// relay instance. Admitted events are recorded against the sender's
// storage quota.
func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req submitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Event == nil || req.Event.PubKey == "" {
		s.sendJSONError(w, http.StatusBadRequest, "event with pubkey required")
		return
	}

	stored, err := s.store.GetRelay(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendError(w, err)
		return
	}

	decision, err := s.engine.Evaluate(r.Context(), stored, req.Event, req.Authenticated)
	if err != nil {
		s.sendError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, submitEventResponse{
		Decision: string(decision),
		Admitted: decision.Admitted(),
	})
}
