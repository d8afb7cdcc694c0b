// Package provider holds the per-platform OAuth adapters and the registry that maps a
// platform identifier to its immutable configuration and adapter.
//
// Code exchange and refresh run on golang.org/x/oauth2. Profile endpoints and the
// platforms with non-standard refresh (Facebook's fb_exchange_token) are called directly.
package provider
