package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	idmerrors "github.com/tendant/simple-linkrule/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// SQLSTATE codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresRepository implements Repository using PostgreSQL.
// Uniqueness of emails and external ids is enforced by the schema.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Migrate creates the tables and indexes if they do not exist
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// FindLinkByExternalID returns the user linked to an external identity
func (r *PostgresRepository) FindLinkByExternalID(ctx context.Context, externalID string) (string, error) {
	query := `
		SELECT user_id
		FROM external_identities
		WHERE external_id = $1
	`

	var userID uuid.UUID
	err := r.pool.QueryRow(ctx, query, externalID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", idmerrors.NotFound("link", externalID)
		}
		return "", fmt.Errorf("failed to get link: %w", err)
	}

	return userID.String(), nil
}

// FindUserByEmail returns the id of the user owning an email
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (string, error) {
	query := `
		SELECT id
		FROM link_users
		WHERE lower(email) = $1
	`

	var userID uuid.UUID
	err := r.pool.QueryRow(ctx, query, normalizeEmail(email)).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", idmerrors.NotFound("user", email)
		}
		return "", fmt.Errorf("failed to get user by email: %w", err)
	}

	return userID.String(), nil
}

// CreateUser creates a user with the given email. Surrounding whitespace is
// not stored.
func (r *PostgresRepository) CreateUser(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", idmerrors.InvalidInput("email", "cannot be empty")
	}

	query := `
		INSERT INTO link_users (email)
		VALUES ($1)
		RETURNING id
	`

	var userID uuid.UUID
	err := r.pool.QueryRow(ctx, query, email).Scan(&userID)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return "", idmerrors.AlreadyExists("user", email)
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	return userID.String(), nil
}

// CreateLink links an external identity to an existing user
func (r *PostgresRepository) CreateLink(ctx context.Context, externalID, userID string) error {
	if externalID == "" {
		return idmerrors.InvalidInput("external_id", "cannot be empty")
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return idmerrors.InvalidInput("user_id", err.Error())
	}

	query := `
		INSERT INTO external_identities (external_id, user_id)
		VALUES ($1, $2)
	`

	if _, err := r.pool.Exec(ctx, query, externalID, id); err != nil {
		switch {
		case isPgError(err, pgUniqueViolation):
			return idmerrors.AlreadyExists("link", externalID)
		case isPgError(err, pgForeignKeyViolation):
			return idmerrors.NotFound("user", userID)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
