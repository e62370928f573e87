package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const fileName = "links.json"

// fileData is the on-disk layout of the file repository
type fileData struct {
	Users []User `json:"users"`
	Links []Link `json:"links"`
}

// FileRepository implements Repository on top of a JSON file.
// Every successful create rewrites the file atomically.
type FileRepository struct {
	dataDir string
	mem     *InMemoryRepository
	mutex   sync.Mutex // serializes create+save
}

// NewFileRepository creates a new file-based repository
func NewFileRepository(dataDir string) (*FileRepository, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir: dataDir,
		mem:     NewInMemoryRepository(),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

func (r *FileRepository) FindLinkByExternalID(ctx context.Context, externalID string) (string, error) {
	return r.mem.FindLinkByExternalID(ctx, externalID)
}

func (r *FileRepository) FindUserByEmail(ctx context.Context, email string) (string, error) {
	return r.mem.FindUserByEmail(ctx, email)
}

func (r *FileRepository) CreateUser(ctx context.Context, email string) (string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	userID, err := r.mem.CreateUser(ctx, email)
	if err != nil {
		return "", err
	}
	if err := r.save(); err != nil {
		return "", err
	}
	return userID, nil
}

func (r *FileRepository) CreateLink(ctx context.Context, externalID, userID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.mem.CreateLink(ctx, externalID, userID); err != nil {
		return err
	}
	return r.save()
}

// load reads data from file
func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, fileName)

	// If file doesn't exist, start empty
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var content fileData
	if err := json.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.mem.restore(content.Users, content.Links)
	return nil
}

// save writes data to file atomically
func (r *FileRepository) save() error {
	content := fileData{
		Users: r.mem.ListUsers(),
		Links: r.mem.ListLinks(),
	}
	sort.Slice(content.Users, func(i, j int) bool { return content.Users[i].CreatedAt.Before(content.Users[j].CreatedAt) })
	sort.Slice(content.Links, func(i, j int) bool { return content.Links[i].CreatedAt.Before(content.Links[j].CreatedAt) })

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first
	tempFile := filepath.Join(r.dataDir, fileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempFile, filepath.Join(r.dataDir, fileName)); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
