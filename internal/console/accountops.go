// ABOUTME: Account moderation operations for a console session
// ABOUTME: Inclusive allowed/blocked listing, allow/block/remove, idempotent removes

package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/2389/relay-console/internal/relay"
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// FetchAccounts lists the working relay's accounts matching the filter
// and caches the result on the session. A filter selecting neither list
// returns nothing.
func (s *Session) FetchAccounts(ctx context.Context, filter relay.AccountFilter) ([]*relay.Account, error) {
	current := s.reconciler.Snapshot()
	if current == nil || current.ID == "" {
		return nil, fmt.Errorf("fetching accounts: %w", ErrNotFound)
	}

	query := url.Values{
		"relay_id": {current.ID},
		"allowed":  {strconv.FormatBool(filter.IncludeAllowed)},
		"blocked":  {strconv.FormatBool(filter.IncludeBlocked)},
	}

	var accounts []*relay.Account
	if err := s.do(ctx, http.MethodGet, "/api/v1/account", query, nil, &accounts); err != nil {
		return nil, fmt.Errorf("fetching accounts: %w", err)
	}

	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
	return accounts, nil
}

// AllowPublicKey grants a public key explicit access to the working
// relay.
func (s *Session) AllowPublicKey(ctx context.Context, pubkey string) (*relay.Account, error) {
	return s.patchAccount(ctx, pubkey, relay.AccountPatch{Allowed: boolRef(true), Blocked: boolRef(false)})
}

// BlockPublicKey bans a public key from the working relay.
func (s *Session) BlockPublicKey(ctx context.Context, pubkey string) (*relay.Account, error) {
	return s.patchAccount(ctx, pubkey, relay.AccountPatch{Allowed: boolRef(false), Blocked: boolRef(true)})
}

// RemoveAccount deletes a public key's account record. Removing an
// account that is already gone succeeds.
func (s *Session) RemoveAccount(ctx context.Context, pubkey string) error {
	current := s.reconciler.Snapshot()
	if current == nil || current.ID == "" {
		return fmt.Errorf("removing account: %w", ErrNotFound)
	}

	err := s.do(ctx, http.MethodDelete, "/api/v1/account/"+current.ID+"/"+pubkey, nil, nil, nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("removing account: %w", err)
	}

	s.mu.Lock()
	for i, account := range s.accounts {
		if account.Pubkey == pubkey {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) patchAccount(ctx context.Context, pubkey string, patch relay.AccountPatch) (*relay.Account, error) {
	current := s.reconciler.Snapshot()
	if current == nil || current.ID == "" {
		return nil, fmt.Errorf("updating account: %w", ErrNotFound)
	}

	payload := struct {
		RelayID string             `json:"relayId"`
		Pubkey  string             `json:"pubkey"`
		Patch   relay.AccountPatch `json:"patch"`
	}{
		RelayID: current.ID,
		Pubkey:  pubkey,
		Patch:   patch,
	}

	var account relay.Account
	if err := s.do(ctx, http.MethodPut, "/api/v1/account", nil, payload, &account); err != nil {
		return nil, fmt.Errorf("updating account: %w", err)
	}

	s.mu.Lock()
	replaced := false
	for i, cached := range s.accounts {
		if cached.Pubkey == pubkey {
			s.accounts[i] = &account
			replaced = true
			break
		}
	}
	if !replaced {
		s.accounts = append(s.accounts, &account)
	}
	s.mu.Unlock()

	return &account, nil
}

func boolRef(b bool) *bool { return &b }
