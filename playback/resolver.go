package playback

import (
	"context"
	"errors"
	"log/slog"

	"github.com/marcus-crane/crooner/models"
	"github.com/marcus-crane/crooner/spotify"
	"github.com/marcus-crane/crooner/tokens"
)

// Resolver turns the two possible upstream playback responses into one
// State. It never returns an error: the badge is public facing and must
// always render something, so every failure maps to a rung of the
// degraded ladder instead.
type Resolver struct {
	tokens  *tokens.Manager
	spotify *spotify.Client
}

func NewResolver(manager *tokens.Manager, client *spotify.Client) *Resolver {
	return &Resolver{
		tokens:  manager,
		spotify: client,
	}
}

func (r *Resolver) Resolve(ctx context.Context, userID string) State {
	accessToken, err := r.tokens.ResolveAccessToken(ctx, userID)
	if err != nil {
		if errors.Is(err, tokens.ErrNoCredential) {
			return Offline(TextNotAuthenticated)
		}
		if errors.Is(err, tokens.ErrInvalidCredential) {
			return Offline(TextPleaseReconnect)
		}
		slog.With(slog.String("user_id", userID), slog.Any("error", err)).Error("Failed to resolve access token")
		return Offline(TextUnavailable)
	}

	playing, err := r.spotify.NowPlaying(ctx, accessToken)
	if err != nil {
		slog.With(slog.String("user_id", userID), slog.Any("error", err)).Error("Failed to fetch now playing")
		return Offline(TextUnavailable)
	}

	if playing != nil && playing.IsPlaying && playing.Item != nil {
		return normalizeLive(playing)
	}

	recent, err := r.spotify.RecentlyPlayed(ctx, accessToken)
	if err != nil {
		slog.With(slog.String("user_id", userID), slog.Any("error", err)).Error("Failed to fetch recently played")
		return Offline(TextUnavailable)
	}

	if len(recent.Items) == 0 {
		return Offline(TextNoRecentTracks)
	}

	return normalizeHistory(recent.Items[0])
}

func normalizeLive(playing *models.NowPlayingResponse) State {
	item := playing.Item
	return State{
		IsPlaying:     playing.IsPlaying,
		IsNowPlaying:  true,
		Kind:          Kind(playing.CurrentlyPlayingType),
		PrimaryName:   item.Name,
		SecondaryName: secondaryName(item, playing.CurrentlyPlayingType),
		CoverImageURL: coverImageURL(item),
		ProgressMs:    playing.ProgressMs,
		DurationMs:    clampDuration(item.DurationMs),
	}
}

func normalizeHistory(entry models.PlayHistoryItem) State {
	item := entry.Track
	return State{
		IsPlaying:     false,
		IsNowPlaying:  false,
		Kind:          Kind(item.Type),
		PrimaryName:   item.Name,
		SecondaryName: secondaryName(&item, item.Type),
		CoverImageURL: coverImageURL(&item),
		ProgressMs:    0,
		DurationMs:    clampDuration(item.DurationMs),
	}
}

func secondaryName(item *models.Item, kind string) string {
	if kind == string(KindEpisode) {
		return item.Show.Publisher
	}
	if len(item.Artists) > 0 {
		return item.Artists[0].Name
	}
	return ""
}

func coverImageURL(item *models.Item) string {
	if len(item.Album.Images) > 0 {
		return item.Album.Images[0].URL
	}
	// Episodes carry artwork directly on the item
	if len(item.Images) > 0 {
		return item.Images[0].URL
	}
	return ""
}

func clampDuration(durationMs int) int {
	if durationMs < 1 {
		return 1
	}
	return durationMs
}
