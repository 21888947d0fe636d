// Package store persists small pieces of client state, such as the session
// token, behind a key-value interface.
package store

import (
	"context"
	"fmt"
)

// TokenKey is the key the session token is stored under
const TokenKey = "token"

// Store is a key-value persistence backend
type Store interface {
	// Get returns the value for key; ok is false when the key is absent
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Clear removes key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error
}

// Kind names a Store backend
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindMongo  Kind = "mongo"
)

// ParseKind validates a backend name from configuration
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindMemory, KindFile, KindMongo:
		return k, nil
	}
	return "", fmt.Errorf("unknown token store %q (want memory, file or mongo)", s)
}
