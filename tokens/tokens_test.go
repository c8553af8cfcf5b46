package tokens

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"

	"github.com/marcus-crane/crooner/config"
	"github.com/marcus-crane/crooner/db"
	"github.com/marcus-crane/crooner/models"
	"github.com/marcus-crane/crooner/spotify"
)

type countingStore struct {
	*db.MemoryStore
	gets int
}

func (cs *countingStore) GetCredential(userID string) (models.Credential, error) {
	cs.gets++
	return cs.MemoryStore.GetCredential(userID)
}

func testManager(store db.Store) *Manager {
	client := spotify.NewClient(config.SpotifyConfig{
		ClientId:     "id",
		ClientSecret: "secret",
		RedirectUri:  "http://localhost:8080/callback",
	}, &http.Client{})
	m := NewManager(store, client)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }
	return m
}

func TestResolveAccessToken_NoCredential(t *testing.T) {
	m := testManager(db.NewMemoryStore())

	_, err := m.ResolveAccessToken(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrNoCredential))
}

func TestResolveAccessToken_UnexpiredStoredToken(t *testing.T) {
	store := &countingStore{MemoryStore: db.NewMemoryStore()}
	store.UpsertCredential(models.Credential{
		UserID:      "user123",
		AccessToken: "stored-token",
		ExpiresAt:   1700000000 + 600,
	})
	m := testManager(store)

	token, err := m.ResolveAccessToken(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Equal(t, "stored-token", token)
	assert.Equal(t, 1, store.gets)

	// Second resolution is served from the process-local cache without
	// another store read
	token, err = m.ResolveAccessToken(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Equal(t, "stored-token", token)
	assert.Equal(t, 1, store.gets)
}

func TestResolveAccessToken_StaleCacheFallsThroughToStore(t *testing.T) {
	store := db.NewMemoryStore()
	store.UpsertCredential(models.Credential{
		UserID:      "user123",
		AccessToken: "old-token",
		ExpiresAt:   1700000000 + 10,
	})
	m := testManager(store)

	_, err := m.ResolveAccessToken(context.Background(), "user123")
	assert.NoError(t, err)

	// The cached entry expires and a newer record has landed in the store
	m.now = func() time.Time { return time.Unix(1700000000+20, 0) }
	store.UpsertCredential(models.Credential{
		UserID:      "user123",
		AccessToken: "new-token",
		ExpiresAt:   1700000000 + 600,
	})

	token, err := m.ResolveAccessToken(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Equal(t, "new-token", token)
}

func TestResolveAccessToken_RefreshSuccess(t *testing.T) {
	defer gock.Off()
	gock.New("https://accounts.spotify.com").
		Post("/api/token").
		Reply(200).
		JSON(map[string]interface{}{
			"access_token": "fresh-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})

	store := db.NewMemoryStore()
	store.UpsertCredential(models.Credential{
		UserID:       "user123",
		AccessToken:  "expired-token",
		RefreshToken: "refresh-abc",
		ExpiresAt:    1700000000 - 10,
	})
	m := testManager(store)

	token, err := m.ResolveAccessToken(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	record, err := store.GetCredential("user123")
	assert.NoError(t, err)
	assert.Equal(t, "fresh-token", record.AccessToken)
	assert.Equal(t, "refresh-abc", record.RefreshToken)
	assert.Greater(t, record.ExpiresAt, int64(1700000000))
}

func TestResolveAccessToken_RefreshOnlyOnce(t *testing.T) {
	defer gock.Off()
	gock.New("https://accounts.spotify.com").
		Post("/api/token").
		Times(1).
		Reply(200).
		JSON(map[string]interface{}{
			"access_token": "fresh-token",
			"expires_in":   3600,
		})

	store := db.NewMemoryStore()
	store.UpsertCredential(models.Credential{
		UserID:       "user123",
		AccessToken:  "expired-token",
		RefreshToken: "refresh-abc",
		ExpiresAt:    1700000000 - 10,
	})
	m := testManager(store)

	_, err := m.ResolveAccessToken(context.Background(), "user123")
	assert.NoError(t, err)

	// Now served from the cache, no second refresh call
	token, err := m.ResolveAccessToken(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.True(t, gock.IsDone())
}

func TestResolveAccessToken_ExpiredWithoutRefreshToken(t *testing.T) {
	store := db.NewMemoryStore()
	store.UpsertCredential(models.Credential{
		UserID:      "user123",
		AccessToken: "expired-token",
		ExpiresAt:   1700000000 - 10,
	})
	m := testManager(store)

	_, err := m.ResolveAccessToken(context.Background(), "user123")
	assert.True(t, errors.Is(err, ErrInvalidCredential))
}

func TestResolveAccessToken_InvalidGrantDeletesRecord(t *testing.T) {
	defer gock.Off()
	gock.New("https://accounts.spotify.com").
		Post("/api/token").
		Reply(400).
		JSON(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Refresh token revoked",
		})

	store := db.NewMemoryStore()
	store.UpsertCredential(models.Credential{
		UserID:       "user123",
		AccessToken:  "expired-token",
		RefreshToken: "revoked",
		ExpiresAt:    1700000000 - 10,
	})
	m := testManager(store)

	var notified string
	m.OnReauthNeeded = func(userID string) {
		notified = userID
	}

	_, err := m.ResolveAccessToken(context.Background(), "user123")
	assert.True(t, errors.Is(err, ErrInvalidCredential))
	assert.Equal(t, "user123", notified)

	_, err = store.GetCredential("user123")
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestResolveAccessToken_TransientRefreshFailureKeepsRecord(t *testing.T) {
	defer gock.Off()
	gock.New("https://accounts.spotify.com").
		Post("/api/token").
		Reply(500).
		JSON(map[string]string{
			"error": "server_error",
		})

	store := db.NewMemoryStore()
	original := models.Credential{
		UserID:       "user123",
		AccessToken:  "expired-token",
		RefreshToken: "refresh-abc",
		ExpiresAt:    1700000000 - 10,
	}
	store.UpsertCredential(original)
	m := testManager(store)

	_, err := m.ResolveAccessToken(context.Background(), "user123")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredential))
	assert.False(t, errors.Is(err, ErrNoCredential))

	record, getErr := store.GetCredential("user123")
	assert.NoError(t, getErr)
	assert.Equal(t, original, record)
}

func TestPrune(t *testing.T) {
	store := db.NewMemoryStore()
	store.UpsertCredential(models.Credential{
		UserID:      "user123",
		AccessToken: "stored-token",
		ExpiresAt:   1700000000 + 10,
	})
	m := testManager(store)

	_, err := m.ResolveAccessToken(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Len(t, m.cache, 1)

	m.now = func() time.Time { return time.Unix(1700000000+20, 0) }
	m.Prune()
	assert.Len(t, m.cache, 0)
}
