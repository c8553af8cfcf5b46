package spotify

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"

	"github.com/marcus-crane/crooner/config"
)

func testClient() *Client {
	return NewClient(config.SpotifyConfig{
		ClientId:     "id",
		ClientSecret: "secret",
		RedirectUri:  "http://localhost:8080/callback",
	}, &http.Client{})
}

func TestLoginURL(t *testing.T) {
	c := testClient()

	loginURL := c.LoginURL("state123")
	assert.Contains(t, loginURL, "https://accounts.spotify.com/authorize?")
	assert.Contains(t, loginURL, "client_id=id")
	assert.Contains(t, loginURL, "response_type=code")
	assert.Contains(t, loginURL, "state=state123")
	assert.Contains(t, loginURL, "user-read-currently-playing")
}

func TestExchangeCode(t *testing.T) {
	defer gock.Off()
	gock.New("https://accounts.spotify.com").
		Post("/api/token").
		Reply(200).
		JSON(map[string]interface{}{
			"access_token":  "access-abc",
			"refresh_token": "refresh-def",
			"expires_in":    3600,
		})

	c := testClient()

	token, err := c.ExchangeCode(context.Background(), "code123")
	assert.NoError(t, err)
	assert.Equal(t, "access-abc", token.AccessToken)
	assert.Equal(t, "refresh-def", token.RefreshToken)
	assert.Equal(t, 3600, token.ExpiresIn)
}

func TestRefresh_InvalidGrant(t *testing.T) {
	defer gock.Off()
	gock.New("https://accounts.spotify.com").
		Post("/api/token").
		Reply(400).
		JSON(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Refresh token revoked",
		})

	c := testClient()

	_, err := c.Refresh(context.Background(), "revoked")
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsInvalidGrant())
}

func TestRefresh_OtherErrorCode(t *testing.T) {
	defer gock.Off()
	gock.New("https://accounts.spotify.com").
		Post("/api/token").
		Reply(400).
		JSON(map[string]string{
			"error": "invalid_client",
		})

	c := testClient()

	_, err := c.Refresh(context.Background(), "whatever")
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.False(t, apiErr.IsInvalidGrant())
}

func TestNowPlaying_NothingPlaying(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.spotify.com").
		Get("/v1/me/player/currently-playing").
		Reply(204)

	c := testClient()

	playing, err := c.NowPlaying(context.Background(), "token")
	assert.NoError(t, err)
	assert.Nil(t, playing)
}

func TestNowPlaying_BadStatusCode(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.spotify.com").
		Get("/v1/me/player/currently-playing").
		Reply(502)

	c := testClient()

	_, err := c.NowPlaying(context.Background(), "token")
	assert.Error(t, err)
}

func TestRecentlyPlayed(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.spotify.com").
		Get("/v1/me/player/recently-played").
		Reply(200).
		JSON(map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"track": map[string]interface{}{
						"name":        "Idioteque",
						"type":        "track",
						"duration_ms": 309000,
					},
				},
			},
		})

	c := testClient()

	recent, err := c.RecentlyPlayed(context.Background(), "token")
	assert.NoError(t, err)
	assert.Len(t, recent.Items, 1)
	assert.Equal(t, "Idioteque", recent.Items[0].Track.Name)
}

func TestProfile(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.spotify.com").
		Get("/v1/me").
		Reply(200).
		JSON(map[string]string{
			"id":           "user123",
			"display_name": "Some User",
		})

	c := testClient()

	profile, err := c.Profile(context.Background(), "token")
	assert.NoError(t, err)
	assert.Equal(t, "user123", profile.ID)
	assert.Equal(t, "Some User", profile.DisplayName)
}
