package db

import (
	"embed"
	"sync"

	"github.com/marcus-crane/crooner/models"
)

// MemoryStore is a map-backed Store used in tests and for local hacking
// without a database file.
type MemoryStore struct {
	m    sync.Mutex
	data map[string]models.Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: map[string]models.Credential{},
	}
}

func (ms *MemoryStore) GetCredential(userID string) (models.Credential, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	c, ok := ms.data[userID]
	if !ok {
		return models.Credential{}, ErrNotFound
	}
	return c, nil
}

func (ms *MemoryStore) UpsertCredential(c models.Credential) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	ms.data[c.UserID] = c
	return nil
}

func (ms *MemoryStore) DeleteCredential(userID string) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	delete(ms.data, userID)
	return nil
}

func (ms *MemoryStore) ApplyMigrations(migrations embed.FS) error {
	return nil
}
