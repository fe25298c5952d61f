package authkit

import "errors"

var (
	// ErrClientNotReady is an exported constant or variable used by the session lifecycle manager.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrInvalidCredentials is an exported constant or variable used by the session lifecycle manager.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistrationInvalid is an exported constant or variable used by the session lifecycle manager.
	ErrRegistrationInvalid = errors.New("invalid registration request")
	// ErrProfileNotFound is an exported constant or variable used by the session lifecycle manager.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNoSession is an exported constant or variable used by the session lifecycle manager.
	ErrNoSession = errors.New("no active session")
)
