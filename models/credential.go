package models

// Credential is the durable record of a user's Spotify authorization.
// ExpiresAt is always derived as issue time plus the provider-reported
// lifetime. RefreshToken may be empty since Spotify omits it on refresh.
type Credential struct {
	UserID       string `db:"user_id"`
	AccessToken  string `db:"access_token"`
	RefreshToken string `db:"refresh_token"`
	ExpiresAt    int64  `db:"expires_at"`
}
