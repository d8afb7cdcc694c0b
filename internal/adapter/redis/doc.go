// Package redis implements the cross-replica pieces of the OAuth flow on Redis:
// the consumed-state ledger and the per-connection refresh lock.
package redis
