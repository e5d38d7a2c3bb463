// Package common contains shared constants and sentinel errors used across
// camposanto components.
package common

// CapturedAtHeaderName is the response header carrying the capture timestamp
// (RFC 3339) the cache interceptor stamps on cached data-endpoint responses.
const CapturedAtHeaderName = "X-Captured-At"

// OfflineHeaderName marks a synthesized offline-error response so callers can
// tell it apart from a real upstream reply.
const OfflineHeaderName = "X-Offline"
