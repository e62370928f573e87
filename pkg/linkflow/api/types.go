package api

// AuthenticateRequest starts a reconciliation for a freshly authenticated identity
type AuthenticateRequest struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email,omitempty"`
}

// UserResponse echoes the principal
type UserResponse struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email,omitempty"`
}

// TokenResponse is returned when a token was issued
type TokenResponse struct {
	User    UserResponse      `json:"user"`
	IDToken map[string]string `json:"id_token"`
}

// RedirectResponse is returned alongside a 302 when the email must be collected
type RedirectResponse struct {
	User        UserResponse `json:"user"`
	RedirectURL string       `json:"redirect_url"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
