package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/zombar/collector/models"
)

// ErrTagExists is returned by CreateTag when the name is already taken
var ErrTagExists = errors.New("tag already exists")

// UpsertTags bumps the usage counter for each tag, creating missing tags
// with a count of one. Counters only ever go up; deleting content does not
// decrement them.
func (db *DB) UpsertTags(tags []string) error {
	for _, tag := range tags {
		name := strings.TrimSpace(tag)
		if name == "" {
			continue
		}

		_, err := db.conn.Exec(`
			INSERT INTO tags (id, name, count)
			VALUES ($1, $2, 1)
			ON CONFLICT(name) DO UPDATE SET count = tags.count + 1
		`, uuid.New().String(), name)
		if err != nil {
			return fmt.Errorf("failed to upsert tag %q: %w", name, err)
		}
	}
	return nil
}

// CreateTag creates a tag with a zero counter.
// Returns ErrTagExists when the name is already taken.
func (db *DB) CreateTag(name, description string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tag name is required")
	}

	var existingID string
	err := db.conn.QueryRow("SELECT id FROM tags WHERE name = $1", name).Scan(&existingID)
	if err == nil {
		return nil, ErrTagExists
	}

	tag := &models.Tag{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
	}
	err = db.conn.QueryRow(`
		INSERT INTO tags (id, name, description, count)
		VALUES ($1, $2, $3, 0)
		RETURNING created_at
	`, tag.ID, tag.Name, tag.Description).Scan(&tag.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

// ListTags returns tags ordered by usage count, most used first
func (db *DB) ListTags(limit int) ([]*models.Tag, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := db.conn.Query(`
		SELECT id, name, description, count, created_at
		FROM tags
		ORDER BY count DESC, name ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Description, &tag.Count, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}
