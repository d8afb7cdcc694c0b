// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (connection.go, platform.go, oauth.go, errors.go) hold the shared
// types and the contracts that adapters implement. No implementation code lives here.
package domain
