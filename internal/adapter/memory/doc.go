// Package memory provides in-process implementations of the connection store, the state
// ledger and the refresh locker, used when DATABASE_URL or REDIS_URL is not configured.
package memory
