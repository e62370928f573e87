// Package emailvalidator checks the syntax of email addresses supplied by end users.
package emailvalidator

import (
	"strings"

	"github.com/asaskevich/govalidator"
)

// maxEmailLength is the RFC 5321 limit on a forward-path address
const maxEmailLength = 254

// Validator reports whether a string is a syntactically valid email address
type Validator struct{}

// New creates an email validator
func New() *Validator {
	return &Validator{}
}

// IsValidEmail returns true for a single, syntactically valid address.
// Display-name forms such as "Jane <jane@example.com>" are rejected.
func (v *Validator) IsValidEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	if strings.TrimSpace(email) != email {
		return false
	}
	return govalidator.IsEmail(email)
}
