package tokengenerator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultExpiry is used when a generator is built without an expiry
const DefaultExpiry = time.Hour

// ModelName is the node model every issued token is scoped to
const ModelName = "User"

// TokenGenerator signs tokens for a subject
type TokenGenerator interface {
	// GenerateToken generates a token with the given subject, expiry and extra claims
	GenerateToken(subject string, expiry time.Duration, extraClaims map[string]interface{}) (string, time.Time, error)
}

// Claims struct for JWT claims
type Claims struct {
	ExtraClaims interface{} `json:"extra_claims,omitempty"`
	ModelName   string      `json:"model_name,omitempty"`
	jwt.RegisteredClaims
}

// JwtTokenGenerator implements the TokenGenerator interface with HS256
type JwtTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
	now      func() time.Time
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator
func NewJwtTokenGenerator(secret, issuer, audience string) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
		now:      time.Now,
	}
}

// GenerateToken creates a new token with the given subject and claims
func (g *JwtTokenGenerator) GenerateToken(subject string, expiry time.Duration, extraClaims map[string]interface{}) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("subject is required")
	}
	if g.Secret == "" {
		return "", time.Time{}, fmt.Errorf("signing secret is not configured")
	}

	now := g.now().UTC()
	claims := Claims{
		ExtraClaims: extraClaims,
		ModelName:   ModelName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    g.Issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed sign JWT Claim string!", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// Issuer mints one token per call for an internal user id. Tokens are never
// cached.
type Issuer struct {
	generator TokenGenerator
	expiry    time.Duration
}

// Option configures an Issuer
type Option func(*Issuer)

// WithExpiry sets the lifetime of issued tokens
func WithExpiry(expiry time.Duration) Option {
	return func(i *Issuer) {
		if expiry > 0 {
			i.expiry = expiry
		}
	}
}

// NewIssuer creates an Issuer backed by a TokenGenerator
func NewIssuer(generator TokenGenerator, opts ...Option) *Issuer {
	issuer := &Issuer{
		generator: generator,
		expiry:    DefaultExpiry,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer
}

// IssueToken returns a signed token whose subject is userID
func (i *Issuer) IssueToken(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, expiresAt, err := i.generator.GenerateToken(userID, i.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	slog.Debug("Token issued", "user_id", userID, "expires_at", expiresAt)
	return token, nil
}
