package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zombar/collector/models"
)

const contentColumns = `id, original_content, content_type, source_info, object_key, summary,
	keywords, tags, sentiment, category, importance_score, word_count, reading_time,
	created_at, updated_at, last_accessed`

// SaveContent inserts a content record
func (db *DB) SaveContent(content *models.Content) error {
	keywordsJSON, err := json.Marshal(content.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}
	tagsJSON, err := json.Marshal(content.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	var sourceJSON sql.NullString
	if content.SourceInfo != nil {
		data, err := json.Marshal(content.SourceInfo)
		if err != nil {
			return fmt.Errorf("failed to marshal source info: %w", err)
		}
		sourceJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO contents (id, original_content, content_type, source_info, object_key, summary,
			keywords, tags, sentiment, category, importance_score, word_count, reading_time,
			created_at, updated_at, last_accessed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = db.conn.Exec(
		query,
		content.ID,
		content.OriginalContent,
		string(content.ContentType),
		sourceJSON,
		content.ObjectKey,
		content.Summary,
		string(keywordsJSON),
		string(tagsJSON),
		content.Sentiment,
		content.Category,
		content.ImportanceScore,
		content.WordCount,
		content.ReadingTime,
		content.CreatedAt,
		content.UpdatedAt,
		content.LastAccessed,
	)
	if err != nil {
		return fmt.Errorf("failed to save content: %w", err)
	}

	return nil
}

// GetByID retrieves a content record by its ID.
// Returns nil without error when no record exists.
func (db *DB) GetByID(id string) (*models.Content, error) {
	row := db.conn.QueryRow("SELECT "+contentColumns+" FROM contents WHERE id = $1", id)

	content, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query content: %w", err)
	}
	return content, nil
}

// TouchLastAccessed records that a content record was read
func (db *DB) TouchLastAccessed(id string) error {
	_, err := db.conn.Exec("UPDATE contents SET last_accessed = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to update last accessed: %w", err)
	}
	return nil
}

// ListOptions controls content listing
type ListOptions struct {
	Page     int    // 1-based
	Limit    int
	Search   string // substring match on content, summary and tags
	Category string
}

// List returns a page of content records, newest first, plus the total
// number of records matching the filters.
func (db *DB) List(opts ListOptions) ([]*models.Content, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 20
	}

	var conds []string
	var args []interface{}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(original_content ILIKE $%d OR summary ILIKE $%d OR tags ILIKE $%d)", n, n, n))
	}
	if opts.Category != "" {
		args = append(args, opts.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM contents"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contents: %w", err)
	}

	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)
	query := fmt.Sprintf("SELECT %s FROM contents%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		contentColumns, where, len(args)-1, len(args))

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query contents: %w", err)
	}
	defer rows.Close()

	contents, err := collectContents(rows)
	if err != nil {
		return nil, 0, err
	}
	return contents, total, nil
}

// UpdateFields holds the mutable parts of a content record. Nil fields are
// left unchanged.
type UpdateFields struct {
	Summary         *string
	Tags            *[]string
	Category        *string
	ImportanceScore *float64
}

// UpdateContent applies a partial update to a content record
func (db *DB) UpdateContent(id string, fields UpdateFields) error {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Summary != nil {
		add("summary", *fields.Summary)
	}
	if fields.Tags != nil {
		tagsJSON, err := json.Marshal(*fields.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags: %w", err)
		}
		add("tags", string(tagsJSON))
	}
	if fields.Category != nil {
		add("category", *fields.Category)
	}
	if fields.ImportanceScore != nil {
		add("importance_score", *fields.ImportanceScore)
	}
	if len(sets) == 0 {
		return errors.New("no fields to update")
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE contents SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := db.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update content: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no content found with id: %s", id)
	}
	return nil
}

// DeleteByID removes a content record. Tag counters are left as they are:
// they count captures, not live records.
func (db *DB) DeleteByID(id string) error {
	result, err := db.conn.Exec("DELETE FROM contents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no content found with id: %s", id)
	}
	return nil
}

// SearchOptions controls content search
type SearchOptions struct {
	Query    string
	Category string
	Tags     []string // every listed tag must be present
	Limit    int
	Offset   int
}

// Search returns content records matching all given criteria, newest first
func (db *DB) Search(opts SearchOptions) ([]*models.Content, error) {
	if opts.Limit < 1 {
		opts.Limit = 20
	}

	var conds []string
	var args []interface{}
	if opts.Query != "" {
		args = append(args, "%"+opts.Query+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(original_content ILIKE $%d OR summary ILIKE $%d OR keywords ILIKE $%d)", n, n, n))
	}
	if opts.Category != "" {
		args = append(args, opts.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	for _, tag := range opts.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		// Tags are stored as a JSON array; matching the quoted form avoids
		// substring hits across tag boundaries.
		args = append(args, `%"`+tag+`"%`)
		conds = append(conds, fmt.Sprintf("tags LIKE $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf("SELECT %s FROM contents%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		contentColumns, where, len(args)-1, len(args))

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search contents: %w", err)
	}
	defer rows.Close()

	return collectContents(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanContent reads one content row, deserializing the JSON columns
func scanContent(row rowScanner) (*models.Content, error) {
	var content models.Content
	var contentType string
	var sourceJSON sql.NullString
	var keywordsJSON, tagsJSON string

	err := row.Scan(
		&content.ID,
		&content.OriginalContent,
		&contentType,
		&sourceJSON,
		&content.ObjectKey,
		&content.Summary,
		&keywordsJSON,
		&tagsJSON,
		&content.Sentiment,
		&content.Category,
		&content.ImportanceScore,
		&content.WordCount,
		&content.ReadingTime,
		&content.CreatedAt,
		&content.UpdatedAt,
		&content.LastAccessed,
	)
	if err != nil {
		return nil, err
	}

	content.ContentType = models.ContentType(contentType)
	if err := json.Unmarshal([]byte(keywordsJSON), &content.Keywords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &content.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if sourceJSON.Valid && sourceJSON.String != "" {
		content.SourceInfo = &models.SourceInfo{}
		if err := json.Unmarshal([]byte(sourceJSON.String), content.SourceInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source info: %w", err)
		}
	}
	return &content, nil
}

func collectContents(rows *sql.Rows) ([]*models.Content, error) {
	var contents []*models.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		contents = append(contents, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contents: %w", err)
	}
	return contents, nil
}
