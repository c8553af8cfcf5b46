package db

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/marcus-crane/crooner/models"

	_ "modernc.org/sqlite"
)

type SqliteStore struct {
	DB *sqlx.DB
}

func NewSqliteStore(dsn string) (*SqliteStore, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &SqliteStore{
		DB: db,
	}, nil
}

func (s *SqliteStore) ApplyMigrations(migrations embed.FS) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return err
	}

	if err := goose.Up(s.DB.DB, "."); err != nil {
		return err
	}

	return nil
}

func (s *SqliteStore) GetCredential(userID string) (models.Credential, error) {
	c := models.Credential{}
	err := s.DB.Get(&c, "SELECT user_id, access_token, refresh_token, expires_at FROM credentials WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	return c, nil
}

func (s *SqliteStore) UpsertCredential(c models.Credential) error {
	query := `
	INSERT INTO credentials (user_id, access_token, refresh_token, expires_at)
	VALUES (:user_id, :access_token, :refresh_token, :expires_at)
	ON CONFLICT (user_id) DO UPDATE SET
	access_token = excluded.access_token,
	refresh_token = excluded.refresh_token,
	expires_at = excluded.expires_at
	`
	_, err := s.DB.NamedExec(query, c)
	return err
}

func (s *SqliteStore) DeleteCredential(userID string) error {
	_, err := s.DB.Exec("DELETE FROM credentials WHERE user_id = ?", userID)
	return err
}
