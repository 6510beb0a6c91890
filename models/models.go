package models

import "time"

// ContentType identifies the kind of input a content record was captured from.
type ContentType string

const (
	TypeText  ContentType = "text"
	TypeURL   ContentType = "url"
	TypeEmail ContentType = "email"
	TypeImage ContentType = "image"
)

// Valid reports whether t is one of the supported content types.
func (t ContentType) Valid() bool {
	switch t {
	case TypeText, TypeURL, TypeEmail, TypeImage:
		return true
	}
	return false
}

// Content represents one captured unit of input plus its derived analysis
type Content struct {
	ID              string      `json:"id"`
	OriginalContent string      `json:"original_content"`
	ContentType     ContentType `json:"content_type"`
	SourceInfo      *SourceInfo `json:"source_info,omitempty"`
	ObjectKey       string      `json:"object_key,omitempty"` // key of the raw capture in object storage
	Summary         string      `json:"summary"`
	Keywords        []string    `json:"keywords"`
	Tags            []string    `json:"tags"`
	Sentiment       float64     `json:"sentiment"`        // -1.0 (negative) to 1.0 (positive)
	Category        string      `json:"category"`
	ImportanceScore float64     `json:"importance_score"` // 0.0 to 1.0
	WordCount       int         `json:"word_count"`
	ReadingTime     int         `json:"reading_time"` // estimated minutes
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	LastAccessed    time.Time   `json:"last_accessed"`
}

// SourceInfo carries capture-time metadata. Exactly one variant is set,
// matching the record's content type; plain text captures have none.
type SourceInfo struct {
	URL   *URLSource   `json:"url,omitempty"`
	Email *EmailSource `json:"email,omitempty"`
	Image *ImageSource `json:"image,omitempty"`
}

// URLSource describes the fetch that produced a url capture
type URLSource struct {
	OriginalURL string    `json:"original_url"`
	Title       string    `json:"title,omitempty"`
	ExtractedAt time.Time `json:"extracted_at"`
	FetchError  string    `json:"fetch_error,omitempty"` // non-empty when the capture is degraded
}

// EmailSource describes the envelope of an email capture
type EmailSource struct {
	From            string    `json:"from,omitempty"`
	Subject         string    `json:"subject,omitempty"`
	ReceivedAt      time.Time `json:"received_at"`
	HasAttachments  bool      `json:"has_attachments,omitempty"`
	AttachmentCount int       `json:"attachment_count,omitempty"`
}

// ImageSource describes an image capture
type ImageSource struct {
	Filename  string    `json:"filename,omitempty"`
	Format    string    `json:"format,omitempty"` // e.g. "jpeg", "png"
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	EXIF      *EXIFData `json:"exif,omitempty"`
}

// EXIFData contains EXIF metadata extracted from an image file
type EXIFData struct {
	DateTime         string   `json:"date_time,omitempty"`          // When photo was taken (EXIF DateTime)
	DateTimeOriginal string   `json:"date_time_original,omitempty"` // Original date/time (EXIF DateTimeOriginal)
	Make             string   `json:"make,omitempty"`               // Camera manufacturer
	Model            string   `json:"model,omitempty"`              // Camera model
	GPS              *GPSData `json:"gps,omitempty"`                // GPS location data
}

// GPSData contains GPS coordinates from EXIF
type GPSData struct {
	Latitude  float64 `json:"latitude"`  // GPS latitude in decimal degrees
	Longitude float64 `json:"longitude"` // GPS longitude in decimal degrees
}

// Analysis is the normalized result of analyzing a piece of content,
// whether produced by an LLM or by the local heuristics.
type Analysis struct {
	Summary         string   `json:"summary"`
	Keywords        []string `json:"keywords"`
	Tags            []string `json:"tags"`
	Sentiment       float64  `json:"sentiment"`
	Category        string   `json:"category"`
	ImportanceScore float64  `json:"importance_score"`
	Insights        string   `json:"insights,omitempty"` // only populated for deep analysis
	AIUsed          bool     `json:"ai_used"`            // whether an LLM produced this result (true) or the heuristic fallback (false)
}

// Tag represents a tag with its usage counter
type Tag struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Count       int       `json:"count"` // times the tag was applied; never decremented
	CreatedAt   time.Time `json:"created_at"`
}

// DailyStat counts captures per calendar day
type DailyStat struct {
	Date        string    `json:"date"` // YYYY-MM-DD
	NewContents int       `json:"new_contents"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Insight is an LLM-generated observation across recent captures
type Insight struct {
	ID          string    `json:"id"`
	InsightText string    `json:"insight_text"`
	PeriodStart string    `json:"period_start"` // YYYY-MM-DD, start of the window the insight covers
	CreatedAt   time.Time `json:"created_at"`
}
