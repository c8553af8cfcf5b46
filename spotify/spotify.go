package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/marcus-crane/crooner/config"
	"github.com/marcus-crane/crooner/models"
)

const (
	authURL           = "https://accounts.spotify.com/authorize"
	tokenURL          = "https://accounts.spotify.com/api/token"
	nowPlayingURL     = "https://api.spotify.com/v1/me/player/currently-playing?additional_types=track,episode"
	recentlyPlayedURL = "https://api.spotify.com/v1/me/player/recently-played?limit=10"
	profileURL        = "https://api.spotify.com/v1/me"

	errCodeInvalidGrant = "invalid_grant"
)

var scopes = []string{
	"user-read-currently-playing",
	"user-read-recently-played",
}

// APIError is the error descriptor returned by the Spotify token endpoint.
// The invalid_grant code is load bearing: it alone means the refresh token
// has been revoked and re-authorization is required.
type APIError struct {
	Code        string
	Description string
	Status      int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify: %s (%s)", e.Code, e.Description)
}

func (e *APIError) IsInvalidGrant() bool {
	return e.Code == errCodeInvalidGrant
}

type Client struct {
	httpClient   *http.Client
	clientId     string
	clientSecret string
	redirectUri  string
}

func NewClient(cfg config.SpotifyConfig, httpClient *http.Client) *Client {
	return &Client{
		httpClient:   httpClient,
		clientId:     cfg.ClientId,
		clientSecret: cfg.ClientSecret,
		redirectUri:  cfg.RedirectUri,
	}
}

// LoginURL builds the Spotify authorize redirect for the one-time
// authorization flow. The state parameter is validated by the callback.
func (c *Client) LoginURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.clientId)
	params.Set("response_type", "code")
	params.Set("redirect_uri", c.redirectUri)
	params.Set("scope", strings.Join(scopes, " "))
	params.Set("state", state)
	return fmt.Sprintf("%s?%s", authURL, params.Encode())
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (models.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", c.redirectUri)
	return c.requestToken(ctx, data)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	return c.requestToken(ctx, data)
}

func (c *Client) requestToken(ctx context.Context, data url.Values) (models.TokenResponse, error) {
	var token models.TokenResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return token, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.clientId+":"+c.clientSecret)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return token, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return token, err
	}

	if err := json.Unmarshal(body, &token); err != nil {
		return token, fmt.Errorf("spotify: failed to unmarshal token response: %w", err)
	}

	if token.Error != "" {
		return token, &APIError{
			Code:        token.Error,
			Description: token.ErrorDescription,
			Status:      resp.StatusCode,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return token, fmt.Errorf("spotify: token endpoint returned %d", resp.StatusCode)
	}

	return token, nil
}

// NowPlaying returns nil when nothing is actively playing, which Spotify
// signals with an empty 204 response.
func (c *Client) NowPlaying(ctx context.Context, accessToken string) (*models.NowPlayingResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nowPlayingURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify: now playing endpoint returned %d", resp.StatusCode)
	}

	var playing models.NowPlayingResponse
	if err := json.NewDecoder(resp.Body).Decode(&playing); err != nil {
		return nil, fmt.Errorf("spotify: failed to unmarshal now playing response: %w", err)
	}
	return &playing, nil
}

func (c *Client) RecentlyPlayed(ctx context.Context, accessToken string) (models.RecentlyPlayedResponse, error) {
	var recent models.RecentlyPlayedResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recentlyPlayedURL, nil)
	if err != nil {
		return recent, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return recent, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return recent, fmt.Errorf("spotify: recently played endpoint returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&recent); err != nil {
		return recent, fmt.Errorf("spotify: failed to unmarshal recently played response: %w", err)
	}
	return recent, nil
}

func (c *Client) Profile(ctx context.Context, accessToken string) (models.Profile, error) {
	var profile models.Profile

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return profile, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return profile, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return profile, fmt.Errorf("spotify: profile endpoint returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return profile, fmt.Errorf("spotify: failed to unmarshal profile response: %w", err)
	}
	return profile, nil
}
