package models

// TokenResponse is returned by the Spotify token endpoint for both the
// authorization code exchange and refresh grants. Spotify only returns a
// refresh token on the initial exchange, never on refresh.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

type Artist struct {
	Name string `json:"name"`
}

type Show struct {
	Name      string `json:"name"`
	Publisher string `json:"publisher"`
}

// Item is either a track or a podcast episode depending on the type field.
// Episodes carry their artwork on the item itself rather than under an album.
type Item struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	DurationMs int      `json:"duration_ms"`
	Album      Album    `json:"album"`
	Artists    []Artist `json:"artists"`
	Show       Show     `json:"show"`
	Images     []Image  `json:"images"`
}

type NowPlayingResponse struct {
	IsPlaying            bool   `json:"is_playing"`
	Item                 *Item  `json:"item"`
	CurrentlyPlayingType string `json:"currently_playing_type"`
	ProgressMs           int    `json:"progress_ms"`
}

type PlayHistoryItem struct {
	Track    Item   `json:"track"`
	PlayedAt string `json:"played_at"`
}

type RecentlyPlayedResponse struct {
	Items []PlayHistoryItem `json:"items"`
}
