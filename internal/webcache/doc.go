// Package webcache intercepts outgoing GET requests at the transport
// boundary and applies per-route caching policies: cache-first with a
// freshness window for the recognized data endpoints, network-first for
// everything else on the API host, and cache-first with network fallback for
// static assets. When the network is unreachable it falls back to stale
// entries where policy allows, or synthesizes a structured offline-error
// response the caller can branch on.
//
// Cached responses live in named, versioned stores; activating a new
// generation purges every store from earlier deployments.
package webcache
