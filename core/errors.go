package core

import "errors"

// Authentication failures
var (
	ErrInvalidCredentials       = errors.New("invalid email or password")         // 401 Unauthorized
	ErrNotAuthenticated         = errors.New("not authenticated")                 // 401 Unauthorized
	ErrProvisioningFailed       = errors.New("account provisioning failed")       // 500
	ErrFederationExchangeFailed = errors.New("federated identity exchange failed") // 401 Unauthorized
	ErrLinkingDisabled          = errors.New("account requires explicit linking") // 401 Unauthorized
	ErrTimeout                  = errors.New("operation timed out")               // 504
)

// Internal failures
var (
	ErrSession          = errors.New("session error")           // 500
	ErrCredentialSystem = errors.New("credential system error") // 500
)

// Account errors
var (
	ErrAccountExists   = errors.New("account already exists") // 409 Conflict
	ErrAccountNotFound = errors.New("account not found")      // 404 Not Found
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found") // 401
	ErrCacheNotFound   = errors.New("session not found in cache")
)

// Post errors
var (
	ErrPostNotFound = errors.New("post not found")                       // 404
	ErrForbidden    = errors.New("post belongs to a different account") // 403
)

// Validation errors (client input)
var (
	ErrEmailRequired    = errors.New("email is required")     // 400
	ErrPasswordRequired = errors.New("password is required")  // 400
	ErrPasswordTooShort = errors.New("password is too short") // 400
	ErrPasswordTooLong  = errors.New("password is too long")  // 400
	ErrInvalidEmail     = errors.New("invalid email format")  // 400
)

// Config errors (server-side configuration)
var (
	ErrDBAdapterRequired = errors.New("database adapter is required") // 500
	ErrSecretRequired    = errors.New("secret is required")           // 500
	ErrSecretTooShort    = errors.New("secret too short")             // 500
)
