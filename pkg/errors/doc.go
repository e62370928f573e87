// Package errors provides structured error handling with error codes for the link rule.
//
// Every failure surfaced by the reconciliation pipeline is an *Error carrying an
// ErrorCode, so hosts can tell a user-correctable problem from an operational one
// and map it to an HTTP status.
//
// # Basic Usage
//
//	import "github.com/tendant/simple-linkrule/pkg/errors"
//
//	// Create a simple error
//	err := errors.New(errors.ErrCodeValidationFailed, "missing or invalid email address")
//
//	// Wrap a failed backend call
//	err := errors.Backend(dbErr, "failed to create user")
//
//	// Stores report lookups and uniqueness rejections with codes
//	err := errors.NotFound("user", email)
//	err := errors.AlreadyExists("link", externalID)
//
// # Error Codes
//
//   - ErrCodeValidationFailed: bad input supplied by the end user (400)
//   - ErrCodeBackend: a backend capability failed (502)
//   - ErrCodeNotFound: a lookup found nothing (404)
//   - ErrCodeAlreadyExists: a store rejected a duplicate (409)
//   - ErrCodeInvalidInput (400), ErrCodeInternal (500)
//
// # Inspection
//
// IsCode walks the chain of wrapped *Error values, so a NotFound wrapped into a
// Backend error still reports both codes:
//
//	if errors.IsCode(err, errors.ErrCodeNotFound) {
//		// fall through to user lookup
//	}
//
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
package errors
