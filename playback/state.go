package playback

// Kind mirrors Spotify's currently_playing_type for live playback and the
// embedded track type for history items. Offline covers every degraded case.
type Kind string

const (
	KindTrack   Kind = "track"
	KindEpisode Kind = "episode"
	KindOffline Kind = "offline"
)

// State is the one normalized snapshot the rest of the pipeline works with.
// Upstream payload shapes never leak past the resolver.
type State struct {
	IsPlaying     bool   `json:"is_playing"`
	IsNowPlaying  bool   `json:"is_now_playing"`
	Kind          Kind   `json:"kind"`
	PrimaryName   string `json:"primary_name"`
	SecondaryName string `json:"secondary_name"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	ProgressMs    int    `json:"progress_ms"`
	DurationMs    int    `json:"duration_ms"`
}

// Offline builds a degraded state. DurationMs is 1 rather than 0 so the
// progress bar maths downstream can never divide by zero.
func Offline(primary string) State {
	return State{
		IsPlaying:     false,
		IsNowPlaying:  false,
		Kind:          KindOffline,
		PrimaryName:   primary,
		SecondaryName: "Spotify",
		ProgressMs:    0,
		DurationMs:    1,
	}
}

// Fixed display text for each rung of the fallback ladder.
const (
	TextNotAuthenticated = "Not authenticated"
	TextPleaseReconnect  = "Please reconnect"
	TextNoRecentTracks   = "No recent tracks"
	TextUnavailable      = "Temporarily unavailable"
	TextNotPlaying       = "Not Playing"
)
