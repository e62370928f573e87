package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	idmerrors "github.com/tendant/simple-linkrule/pkg/errors"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	users map[string]User // keyed by user ID
	byKey map[string]string
	links map[string]Link // keyed by external ID
	mutex sync.RWMutex
}

// NewInMemoryRepository creates an empty in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users: make(map[string]User),
		byKey: make(map[string]string),
		links: make(map[string]Link),
	}
}

// FindLinkByExternalID returns the user linked to an external identity
func (r *InMemoryRepository) FindLinkByExternalID(ctx context.Context, externalID string) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	link, exists := r.links[externalID]
	if !exists {
		return "", idmerrors.NotFound("link", externalID)
	}
	return link.UserID, nil
}

// FindUserByEmail returns the id of the user owning an email
func (r *InMemoryRepository) FindUserByEmail(ctx context.Context, email string) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	userID, exists := r.byKey[normalizeEmail(email)]
	if !exists {
		return "", idmerrors.NotFound("user", email)
	}
	return userID, nil
}

// CreateUser creates a user with the given email
func (r *InMemoryRepository) CreateUser(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", idmerrors.InvalidInput("email", "cannot be empty")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := normalizeEmail(email)
	if _, exists := r.byKey[key]; exists {
		return "", idmerrors.AlreadyExists("user", email)
	}

	user := User{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	r.users[user.ID] = user
	r.byKey[key] = user.ID
	return user.ID, nil
}

// CreateLink links an external identity to an existing user
func (r *InMemoryRepository) CreateLink(ctx context.Context, externalID, userID string) error {
	if externalID == "" {
		return idmerrors.InvalidInput("external_id", "cannot be empty")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.users[userID]; !exists {
		return idmerrors.NotFound("user", userID)
	}
	if _, exists := r.links[externalID]; exists {
		return idmerrors.AlreadyExists("link", externalID)
	}

	r.links[externalID] = Link{
		ExternalID: externalID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}
	return nil
}

// ListUsers returns a copy of all users (useful for testing/monitoring)
func (r *InMemoryRepository) ListUsers() []User {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	users := make([]User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	return users
}

// ListLinks returns a copy of all links (useful for testing/monitoring)
func (r *InMemoryRepository) ListLinks() []Link {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	links := make([]Link, 0, len(r.links))
	for _, link := range r.links {
		links = append(links, link)
	}
	return links
}

// restore replaces the repository content with a snapshot
func (r *InMemoryRepository) restore(users []User, links []Link) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.users = make(map[string]User, len(users))
	r.byKey = make(map[string]string, len(users))
	r.links = make(map[string]Link, len(links))
	for _, user := range users {
		r.users[user.ID] = user
		r.byKey[normalizeEmail(user.Email)] = user.ID
	}
	for _, link := range links {
		r.links[link.ExternalID] = link
	}
}
