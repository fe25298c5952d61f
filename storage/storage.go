package storage

import (
	"context"
	"errors"
)

const (
	// KeyUser is the storage key holding the current User as JSON.
	KeyUser = "auth_user"
	// KeySession is the storage key holding the trimmed session projection
	// {access_token, refresh_token, expires_at} as JSON.
	KeySession = "auth_session"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// ErrUnavailable wraps backend transport failures so callers can
// distinguish "no value" from "backend down".
var ErrUnavailable = errors.New("storage: backend unavailable")

// Store is a string-keyed byte store. Delete on a missing key is not an
// error; implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
