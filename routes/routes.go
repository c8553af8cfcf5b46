package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	hmacext "github.com/alexellis/hmac/v2"
	"github.com/google/uuid"
	"github.com/r3labs/sse/v2"
	"github.com/rs/cors"

	"github.com/marcus-crane/crooner/artwork"
	"github.com/marcus-crane/crooner/badge"
	"github.com/marcus-crane/crooner/cache"
	"github.com/marcus-crane/crooner/config"
	"github.com/marcus-crane/crooner/db"
	"github.com/marcus-crane/crooner/events"
	"github.com/marcus-crane/crooner/models"
	"github.com/marcus-crane/crooner/playback"
	"github.com/marcus-crane/crooner/profanity"
	"github.com/marcus-crane/crooner/spotify"
)

const (
	badgeCacheControl = "s-maxage=30, stale-while-revalidate"
	stateLifetime     = 10 * time.Minute

	// Served if even the degraded render path blows up. The badge endpoint
	// never returns a non-200 response.
	lastResortSVG = `<svg width="480" height="145" xmlns="http://www.w3.org/2000/svg"><text x="18" y="78" font-family="sans-serif" font-size="16" fill="#8b949e">Temporarily unavailable</text></svg>`
)

type Deps struct {
	Config    *config.Config
	Store     db.Store
	Spotify   *spotify.Client
	Resolver  *playback.Resolver
	Extractor *artwork.Extractor
	Responses *cache.ResponseCache
	Renderer  *badge.Renderer
	Filter    *profanity.Filter
}

type router struct {
	Deps

	mu     sync.Mutex
	states map[string]time.Time
}

func renderJSONMessage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	res := map[string]string{"message": message}
	json.NewEncoder(w).Encode(res)
}

func Register(mux *http.ServeMux, deps Deps) http.Handler {
	rt := &router{
		Deps:   deps,
		states: map[string]time.Time{},
	}

	if events.Server != nil {
		events.Server.CreateStream("playback")
		mux.HandleFunc("/events", events.Server.ServeHTTP)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "Welcome to Crooner, a now playing badge for your Github profile.\nYou can find the source code on <a href=\"https://github.com/marcus-crane/crooner\">Github</a>\n")
	})

	mux.HandleFunc("/view", rt.handleView)
	mux.HandleFunc("/login", rt.handleLogin)
	mux.HandleFunc("/callback", rt.handleCallback)
	mux.HandleFunc("/api/disconnect", rt.handleDisconnect)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Origin, Content-Type, Accept"},
	})

	return c.Handler(mux)
}

type viewParams struct {
	uid              string
	interchange      bool
	skipDark         bool
	profanityEnabled bool
	options          badge.Options
}

func (rt *router) handleView(w http.ResponseWriter, r *http.Request) {
	qVal := r.URL.Query()

	params := viewParams{
		uid:              qVal.Get("uid"),
		interchange:      boolParam(qVal, "interchange", false),
		skipDark:         boolParam(qVal, "is_skip_dark", true),
		profanityEnabled: boolParam(qVal, "is_enable_profanity", true),
		options: badge.Options{
			Theme:           stringParam(qVal, "theme", "default"),
			ShowOffline:     boolParam(qVal, "show_offline", false),
			BackgroundColor: strings.ToLower(stringParam(qVal, "background_color", "0d1117")),
			Mode:            strings.ToLower(stringParam(qVal, "mode", "light")),
		},
	}

	key := cache.Key(
		params.uid,
		params.options.Theme,
		params.options.ShowOffline,
		params.interchange,
		params.options.BackgroundColor,
		params.skipDark,
		params.profanityEnabled,
		params.options.Mode,
	)

	svg, _, err := rt.Responses.GetOrRender(key, func() ([]byte, error) {
		return rt.renderBadge(r.Context(), params)
	})
	if err != nil {
		slog.With(slog.String("uid", params.uid), slog.Any("error", err)).Error("Failed to render badge")
		svg, err = rt.Renderer.Render(playback.Offline(playback.TextUnavailable), nil, artwork.DefaultAccent, params.options)
		if err != nil {
			svg = []byte(lastResortSVG)
		}
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", badgeCacheControl)
	w.Write(svg)
}

func (rt *router) renderBadge(ctx context.Context, params viewParams) ([]byte, error) {
	var state playback.State
	if params.uid == "" {
		// Static offline card, rendered before any token resolution
		state = playback.Offline(playback.TextNotPlaying)
	} else {
		state = rt.Resolver.Resolve(ctx, params.uid)
	}

	var cover []byte
	accent := artwork.DefaultAccent
	if state.CoverImageURL != "" {
		cover, accent = rt.Extractor.Extract(ctx, state.CoverImageURL, params.skipDark)
	}

	if state.Kind != playback.KindOffline {
		if params.profanityEnabled {
			state.PrimaryName = rt.Filter.Clean(state.PrimaryName)
			state.SecondaryName = rt.Filter.Clean(state.SecondaryName)
		}
		if params.interchange {
			state.PrimaryName, state.SecondaryName = state.SecondaryName, state.PrimaryName
		}
	}

	if params.uid != "" && events.Server != nil {
		if payload, err := json.Marshal(state); err == nil {
			events.Server.Publish("playback", &sse.Event{Data: payload})
		}
	}

	return rt.Renderer.Render(state, cover, accent, params.options)
}

func (rt *router) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	rt.mu.Lock()
	now := time.Now()
	for s, issued := range rt.states {
		if now.Sub(issued) > stateLifetime {
			delete(rt.states, s)
		}
	}
	rt.states[state] = now
	rt.mu.Unlock()

	http.Redirect(w, r, rt.Spotify.LoginURL(state), http.StatusFound)
}

// handleCallback is the one surface allowed to return real HTTP errors: a
// denied or missing authorization code has no badge to degrade into.
func (rt *router) handleCallback(w http.ResponseWriter, r *http.Request) {
	qVal := r.URL.Query()

	if errParam := qVal.Get("error"); errParam != "" {
		http.Error(w, fmt.Sprintf("Authorization failed: %s", errParam), http.StatusBadRequest)
		return
	}

	code := qVal.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	if !rt.consumeState(qVal.Get("state")) {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	token, err := rt.Spotify.ExchangeCode(r.Context(), code)
	if err != nil {
		slog.With(slog.Any("error", err)).Error("Failed to exchange authorization code")
		http.Error(w, "Failed to exchange authorization code", http.StatusBadGateway)
		return
	}

	profile, err := rt.Spotify.Profile(r.Context(), token.AccessToken)
	if err != nil {
		slog.With(slog.Any("error", err)).Error("Failed to fetch user profile")
		http.Error(w, "Failed to fetch user profile", http.StatusBadGateway)
		return
	}

	record := models.Credential{
		UserID:       profile.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Unix() + int64(token.ExpiresIn),
	}
	if err := rt.Store.UpsertCredential(record); err != nil {
		slog.With(slog.String("user_id", profile.ID), slog.Any("error", err)).Error("Failed to persist credential")
		http.Error(w, "Failed to save credentials", http.StatusInternalServerError)
		return
	}

	slog.With(slog.String("user_id", profile.ID)).Info("Connected new user")

	baseURL := rt.Config.Crooner.BaseURL
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, callbackPage, profile.DisplayName, profile.ID, profile.ID, baseURL, url.QueryEscape(profile.ID))
}

const callbackPage = `<html>
<head><title>Connected to Crooner</title></head>
<body style="background-color: #0d1117; color: #c9d1d9; font-family: monospace; padding: 20px;">
<h1>Connected!</h1>
<p>You are logged in as <b>%s</b>. Your Spotify ID is <code>%s</code>.</p>
<p>Add the badge to your README like so:</p>
<pre style="background-color: #161b22; padding: 15px; border-radius: 5px; overflow-x: auto;">
&lt;a href="https://open.spotify.com/user/%s"&gt;
  &lt;img src="%s/view?uid=%s" /&gt;
&lt;/a&gt;
</pre>
</body>
</html>
`

func (rt *router) consumeState(state string) bool {
	if state == "" {
		return false
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	issued, ok := rt.states[state]
	if !ok {
		return false
	}
	delete(rt.states, state)
	return time.Since(issued) <= stateLifetime
}

// handleDisconnect deletes a user's stored credential on request. Guarded
// by an HMAC signature over the body rather than a bearer token so the
// secret never travels on the wire.
func (rt *router) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if rt.Config.Crooner.AdminSecret == "" {
		renderJSONMessage(w, "This endpoint is not properly configured")
		return
	}

	if r.Method != http.MethodPost {
		renderJSONMessage(w, "That method is invalid for this endpoint")
		return
	}

	signature := r.Header.Get("X-Crooner-Signature")
	if signature == "" {
		renderJSONMessage(w, "No signature was provided")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		renderJSONMessage(w, "Failed to read request body as part of signature validation")
		return
	}

	if err := hmacext.Validate(body, fmt.Sprintf("sha256=%s", signature), rt.Config.Crooner.AdminSecret); err != nil {
		slog.With(slog.Any("error", err)).Error("Failed signature validation")
		renderJSONMessage(w, "Signature failed validation")
		return
	}

	var payload struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.UID == "" {
		renderJSONMessage(w, "A uid did not appear to be provided")
		return
	}

	if err := rt.Store.DeleteCredential(payload.UID); err != nil {
		slog.With(slog.String("user_id", payload.UID), slog.Any("error", err)).Error("Failed to delete credential")
		renderJSONMessage(w, "Something went wrong trying to disconnect that user")
		return
	}

	renderJSONMessage(w, "Operation was successfully executed")
}

func boolParam(q url.Values, key string, fallback bool) bool {
	value := q.Get(key)
	if value == "" {
		return fallback
	}
	return strings.ToLower(value) == "true"
}

func stringParam(q url.Values, key, fallback string) string {
	value := q.Get(key)
	if value == "" {
		return fallback
	}
	return value
}
