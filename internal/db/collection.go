package db

import (
	"context"
	"errors"
)

// ErrStateNotFound is returned when no value is stored under a key.
var ErrStateNotFound = errors.New("state not found")

// StateCollection stores opaque values under string keys.
type StateCollection interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}
