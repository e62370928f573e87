package store

import (
	"context"
	"strings"
	"time"
)

// User is an internal account record, keyed by email
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Link associates one external identity with exactly one internal user
type Link struct {
	ExternalID string    `json:"external_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository is the durable store behind the reconciliation pipeline.
//
// Lookups that find nothing return an errors.ErrCodeNotFound error. Creates
// that would violate email or external id uniqueness return an
// errors.ErrCodeAlreadyExists error.
type Repository interface {
	FindLinkByExternalID(ctx context.Context, externalID string) (string, error)
	FindUserByEmail(ctx context.Context, email string) (string, error)
	CreateUser(ctx context.Context, email string) (string, error)
	CreateLink(ctx context.Context, externalID, userID string) error
}

// normalizeEmail is the key under which emails are compared
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
