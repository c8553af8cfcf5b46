package db

import (
	"embed"
	"errors"

	"github.com/marcus-crane/crooner/models"
)

// ErrNotFound is returned when no credential record exists for a user.
var ErrNotFound = errors.New("db: no credential for user")

// Store holds one credential record per Spotify user id. The record is
// created on the initial authorization code exchange, rewritten on every
// successful refresh and deleted outright when Spotify reports the refresh
// token itself has been revoked.
type Store interface {
	GetCredential(userID string) (models.Credential, error)
	UpsertCredential(c models.Credential) error
	DeleteCredential(userID string) error
	ApplyMigrations(migrations embed.FS) error
}
