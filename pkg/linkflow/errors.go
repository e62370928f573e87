package linkflow

import (
	idmerrors "github.com/tendant/simple-linkrule/pkg/errors"
)

// Messages surfaced for validation failures
const (
	msgInvalidEmail      = "missing or invalid email address"
	msgMissingExternalID = "missing external identity"
)

func validationError(message string) error {
	return idmerrors.ValidationFailed(message)
}

func backendError(err error, message string) error {
	return idmerrors.Backend(err, message)
}

// IsValidationError reports a user-correctable failure such as a bad email
// on a redirect continuation.
func IsValidationError(err error) bool {
	return idmerrors.IsCode(err, idmerrors.ErrCodeValidationFailed)
}

// IsBackendError reports a failure of the backend or token issuer
func IsBackendError(err error) bool {
	return idmerrors.IsCode(err, idmerrors.ErrCodeBackend)
}

func isNotFound(err error) bool {
	return idmerrors.IsCode(err, idmerrors.ErrCodeNotFound)
}

func isAlreadyExists(err error) bool {
	return idmerrors.IsCode(err, idmerrors.ErrCodeAlreadyExists)
}
