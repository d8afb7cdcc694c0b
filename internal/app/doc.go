// Package app provides the application service layer.
//
// ConnectionService orchestrates the OAuth connection lifecycle: begin connect, callback
// handling, refresh-on-demand and disconnect. It depends on domain interfaces and the
// provider registry, not on concrete stores.
package app
