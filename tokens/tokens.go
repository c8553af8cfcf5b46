package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus-crane/crooner/db"
	"github.com/marcus-crane/crooner/spotify"
)

var (
	// ErrNoCredential means the user never completed authorization.
	ErrNoCredential = errors.New("tokens: no credential on record")
	// ErrInvalidCredential means the refresh token was rejected outright
	// and the user has to reconnect.
	ErrInvalidCredential = errors.New("tokens: credential can no longer be refreshed")
)

type cachedToken struct {
	accessToken string
	expiresAt   int64
}

// Manager resolves a usable access token for a user, preferring the
// process-local cache, then the durable store, then a refresh against
// Spotify. The cache is never authoritative: entries are re-validated
// against their own expiry on every read and simply superseded on a miss.
//
// Two workers refreshing the same user concurrently is tolerated rather
// than prevented. Both refreshes yield valid tokens and the last durable
// write wins, so no per-user locking is done.
type Manager struct {
	store   db.Store
	spotify *spotify.Client

	mu    sync.RWMutex
	cache map[string]cachedToken

	now func() time.Time

	// OnReauthNeeded fires after a credential has been deleted because
	// Spotify revoked the refresh token. Used to ping the operator.
	OnReauthNeeded func(userID string)
}

func NewManager(store db.Store, client *spotify.Client) *Manager {
	return &Manager{
		store:   store,
		spotify: client,
		cache:   map[string]cachedToken{},
		now:     time.Now,
	}
}

// ResolveAccessToken returns an access token that is valid right now,
// refreshing and persisting a new one if needed. Callers pattern match on
// ErrNoCredential and ErrInvalidCredential; anything else is transient.
func (m *Manager) ResolveAccessToken(ctx context.Context, userID string) (string, error) {
	now := m.now().Unix()

	m.mu.RLock()
	cached, ok := m.cache[userID]
	m.mu.RUnlock()
	if ok && cached.expiresAt > now {
		return cached.accessToken, nil
	}

	record, err := m.store.GetCredential(userID)
	if errors.Is(err, db.ErrNotFound) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("tokens: failed to load credential: %w", err)
	}

	if record.ExpiresAt > now {
		m.mu.Lock()
		m.cache[userID] = cachedToken{accessToken: record.AccessToken, expiresAt: record.ExpiresAt}
		m.mu.Unlock()
		return record.AccessToken, nil
	}

	if record.RefreshToken == "" {
		return "", ErrInvalidCredential
	}

	token, err := m.spotify.Refresh(ctx, record.RefreshToken)
	if err != nil {
		var apiErr *spotify.APIError
		if errors.As(err, &apiErr) && apiErr.IsInvalidGrant() {
			// The refresh token itself has been revoked so the record is
			// useless. Deleting it forces a fresh authorization.
			if delErr := m.store.DeleteCredential(userID); delErr != nil {
				slog.With(slog.String("user_id", userID), slog.Any("error", delErr)).Error("Failed to delete revoked credential")
			}
			if m.OnReauthNeeded != nil {
				m.OnReauthNeeded(userID)
			}
			return "", ErrInvalidCredential
		}
		return "", fmt.Errorf("tokens: refresh failed: %w", err)
	}

	record.AccessToken = token.AccessToken
	record.ExpiresAt = m.now().Unix() + int64(token.ExpiresIn)
	if token.RefreshToken != "" {
		record.RefreshToken = token.RefreshToken
	}

	// Durable store first. The cache is only updated once the write has
	// landed so the two can never disagree about which token is newest.
	if err := m.store.UpsertCredential(record); err != nil {
		return "", fmt.Errorf("tokens: failed to persist refreshed credential: %w", err)
	}

	m.mu.Lock()
	m.cache[userID] = cachedToken{accessToken: record.AccessToken, expiresAt: record.ExpiresAt}
	m.mu.Unlock()

	slog.With(slog.String("user_id", userID)).Debug("Refreshed access token")

	return record.AccessToken, nil
}

// Prune drops expired entries from the process-local cache. Expired entries
// are already ignored on read so this only bounds memory for users whose
// badges are no longer being requested.
func (m *Manager) Prune() {
	now := m.now().Unix()
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, cached := range m.cache {
		if cached.expiresAt <= now {
			delete(m.cache, userID)
		}
	}
}
