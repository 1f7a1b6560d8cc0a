package constants

import "errors"

// Configuration errors.
var (
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrNoCredentials      = errors.New("no credentials configured, set access-token or client-id and client-secret")
	ErrOrgIDNotConfigured = errors.New("org-id is not configured")
	ErrSecretNotProvided  = errors.New("webhook secret is not configured, use --secret or 'cmapi config set client-secret'")
)

// Token errors.
var (
	ErrNoAccessToken     = errors.New("token response did not contain an access token")
	ErrTokenURLRequired  = errors.New("token URL is required")
	ErrClientIDRequired  = errors.New("client ID is required")
	ErrClientSecretEmpty = errors.New("client secret is required")
)

// Validation errors.
var (
	ErrInvalidOutputFormat = errors.New("invalid output format, use table, json or yaml")
	ErrInvalidVariable     = errors.New("variable must be NAME=VALUE")
	ErrNoVariables         = errors.New("at least one variable is required")
	ErrEmptyPayload        = errors.New("event payload is empty")
)

// Relay errors.
var (
	ErrRelayClosed = errors.New("relay is closed")
)
