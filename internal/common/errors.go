// Package common defines shared constants and sentinel errors used across
// camposanto components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Local-store lifecycle errors.
	ErrorStoreUnavailable = errors.New("local store unavailable")

	// Connectivity errors.
	ErrorOffline = errors.New("offline")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
