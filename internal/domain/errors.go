package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrRefreshNotSupported = errors.New("token refresh not supported")
	ErrRefreshTokenMissing = errors.New("token expired and no refresh token available")
	ErrNoFacebookPages     = errors.New("no pages found")
	ErrNoInstagramAccount  = errors.New("no linked Instagram account")
)

type CallbackReason string

const (
	CallbackRemoteError    CallbackReason = "remote_error"
	CallbackMissingParams  CallbackReason = "missing_params"
	CallbackStateMismatch  CallbackReason = "state_mismatch"
	CallbackExpired        CallbackReason = "expired"
	CallbackExchangeFailed CallbackReason = "exchange_failed"
)

// CallbackError reports why an authorization callback could not complete.
// Code is the provider's own error code for remote errors.
type CallbackError struct {
	Reason  CallbackReason
	Code    string
	Message string
	Err     error
}

func (e *CallbackError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return fmt.Sprintf("oauth callback failed: %s", e.Reason)
	}
	return fmt.Sprintf("oauth callback failed: %s: %s", e.Reason, msg)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// TokenExchangeError is returned when a provider answers a token or profile request
// with a non-success status or an unparseable body.
type TokenExchangeError struct {
	Platform   Platform
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s token exchange failed with status %d: %s", e.Platform, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s token exchange failed: %v", e.Platform, e.Err)
	}
	return fmt.Sprintf("%s token exchange failed", e.Platform)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }
