// Package store persists chat desk collections in a key-value store.
package store

import (
	"context"
	"errors"
)

// Keys of the persisted collections.
const (
	KeyChats         = "chatHistory"
	KeyProjects      = "projects"
	KeyVoiceSettings = "voiceSettings"
)

// ErrNotFound is returned by Load when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Store is a key-value store holding whole serialized collections.
// Save overwrites the previous value; there is no merge and no isolation
// between writers, the last write wins.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Backend names, as selected by STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendNATS   = "nats"
)
