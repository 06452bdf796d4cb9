// ABOUTME: Console session: authenticated HTTP access to the management API
// ABOUTME: Holds cached relay and account state, no package globals

package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/2389/relay-console/internal/reconcile"
	"github.com/2389/relay-console/internal/relay"
)

const defaultTimeout = 10 * time.Second

// Session is one operator's view of a single relay on the management
// API. Relay state is mediated by a reconciler so local edits render
// immediately and roll back if the server rejects them.
type Session struct {
	baseURL  string
	readKey  string
	adminKey string
	client   *http.Client
	logger   *slog.Logger

	reconciler *reconcile.Reconciler

	mu       deadlock.Mutex
	accounts []*relay.Account
}

// NewSession creates a session against the given console server. The
// read key covers fetches; the admin key covers mutations.
func NewSession(baseURL, readKey, adminKey string) *Session {
	return &Session{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		readKey:    readKey,
		adminKey:   adminKey,
		client:     &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default().With("component", "console"),
		reconciler: reconcile.NewReconciler(),
	}
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func (s *Session) WithHTTPClient(client *http.Client) *Session {
	s.client = client
	return s
}

// Relay returns the current provisional relay view, or nil before the
// first successful fetch.
func (s *Session) Relay() *relay.Relay {
	return s.reconciler.Snapshot()
}

// Accounts returns the last fetched account list.
func (s *Session) Accounts() []*relay.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*relay.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// ExpirePending rolls back staged mutations the server never answered.
func (s *Session) ExpirePending() []string {
	return s.reconciler.ExpireStale(time.Now())
}

// do sends one request with the right key and maps failures onto the
// package's sentinel errors.
func (s *Session) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	target := s.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Api-Key", s.keyFor(method))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapStatus(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (s *Session) keyFor(method string) string {
	if method == http.MethodGet {
		return s.readKey
	}
	return s.adminKey
}
