// Package offline owns the decision of where a read or write goes — the
// local sqlite mirror or the remote data API — and the replay protocol for
// mutations queued while the connection was down.
//
// Reads are local-first: the mirror answers immediately and a full remote
// refresh is folded in only when the data is missing or stale. Writes go
// straight to the remote while online; offline they are applied to the
// mirror optimistically and appended to the pending-change queue, which is
// drained in creation order on the next reconnect.
package offline
