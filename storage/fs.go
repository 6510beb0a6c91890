package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config contains filesystem storage configuration
type Config struct {
	BasePath string // Base directory for all stored objects
}

// DefaultConfig returns default storage configuration
func DefaultConfig() Config {
	return Config{
		BasePath: "./storage",
	}
}

// FSStorage stores objects on the local filesystem under a base directory
type FSStorage struct {
	config Config
}

// NewFS creates a new FSStorage instance
func NewFS(config Config) (*FSStorage, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory: %w", err)
	}

	return &FSStorage{
		config: config,
	}, nil
}

// Save writes an object under the given key, suffixing the name when the
// key is already taken. Returns the key the object was written at.
func (s *FSStorage) Save(data []byte, key, contentType string) (string, error) {
	filePath := filepath.Join(s.config.BasePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	// Check if file already exists and make unique if necessary
	ext := filepath.Ext(filePath)
	base := strings.TrimSuffix(filePath, ext)
	counter := 1
	for fileExists(filePath) {
		filePath = fmt.Sprintf("%s-%d%s", base, counter, ext)
		counter++
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write object file: %w", err)
	}

	// Return the key relative to the base storage directory
	relPath, err := filepath.Rel(s.config.BasePath, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to get relative path: %w", err)
	}

	return filepath.ToSlash(relPath), nil
}

// Read reads an object from the filesystem
func (s *FSStorage) Read(key string) ([]byte, error) {
	fullPath := filepath.Join(s.config.BasePath, filepath.FromSlash(key))

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read object file: %w", err)
	}

	return data, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *FSStorage) Delete(key string) error {
	fullPath := filepath.Join(s.config.BasePath, filepath.FromSlash(key))

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
