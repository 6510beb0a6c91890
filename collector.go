// Package collector implements the content capture pipeline: take a piece
// of text, a URL, an email or an image, extract what can be read from it,
// analyze it with an LLM (or local heuristics when no model is available)
// and persist the result.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zombar/collector/llm"
	"github.com/zombar/collector/models"
	"github.com/zombar/collector/slug"
	"github.com/zombar/collector/storage"
)

const (
	urlTag        = "链接"
	urlCategory   = "article"
	emailTag      = "邮件"
	emailCategory = "email"
)

// ErrAINotConfigured is returned by operations that require a model when no
// API key is configured. Capture never returns it; capture degrades to
// heuristics instead.
var ErrAINotConfigured = errors.New("AI analysis is not configured")

// Config contains collector configuration
type Config struct {
	// HTTPTimeout bounds URL fetches.
	HTTPTimeout time.Duration
	LLM         llm.Config
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		HTTPTimeout: 30 * time.Second,
		LLM:         llm.DefaultConfig(),
	}
}

// Store defines the persistence operations the pipeline needs
type Store interface {
	SaveContent(content *models.Content) error
	UpsertTags(tags []string) error
	IncrementDailyStat(date string) error
}

// Collector orchestrates content capture
type Collector struct {
	config     Config
	httpClient *http.Client
	llmClient  *llm.Client
	store      Store
	objects    storage.ObjectStore
}

// New creates a Collector. store and objects may be nil, in which case
// captures are analyzed but nothing is persisted; that mode backs the
// ad hoc analyze endpoint and the tests.
func New(config Config, store Store, objects storage.ObjectStore) *Collector {
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 30 * time.Second
	}
	return &Collector{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		llmClient: llm.NewClient(config.LLM),
		store:     store,
		objects:   objects,
	}
}

// AIConfigured reports whether an LLM is available for analysis
func (c *Collector) AIConfigured() bool {
	return c.config.LLM.APIKey != ""
}

// CaptureRequest describes one unit of content to ingest
type CaptureRequest struct {
	Type         models.ContentType
	Content      string // raw text, a URL, or an assembled email body
	AutoTag      bool   // run LLM analysis when a model is configured
	DeepAnalysis bool

	// Image captures only.
	ImageData []byte
	Filename  string

	// Email captures only.
	From            string
	Subject         string
	HasAttachments  bool
	AttachmentCount int
}

// Capture runs the full pipeline for one request and returns the stored
// record. Model failures and URL fetch failures degrade the capture rather
// than failing it; an error here means invalid input or a persistence
// failure.
func (c *Collector) Capture(ctx context.Context, req CaptureRequest) (*models.Content, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("unsupported content type: %q", req.Type)
	}
	if req.Type == models.TypeImage {
		if len(req.ImageData) == 0 {
			return nil, errors.New("image data is required")
		}
	} else if strings.TrimSpace(req.Content) == "" {
		return nil, errors.New("content is required")
	}

	now := time.Now().UTC()
	content := &models.Content{
		ID:              uuid.New().String(),
		OriginalContent: strings.TrimSpace(req.Content),
		ContentType:     req.Type,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastAccessed:    now,
	}

	// Per-type preprocessing: what text gets analyzed, what raw bytes get
	// archived, and the source metadata recorded alongside.
	processed := content.OriginalContent
	var blob blobSpec

	switch req.Type {
	case models.TypeText:
		blob = blobSpec{data: []byte(processed), prefix: "text", name: content.ID, ext: ".txt", contentType: "text/plain; charset=utf-8"}

	case models.TypeURL:
		if err := ValidateURL(processed); err != nil {
			return nil, err
		}
		fetched := c.FetchURL(ctx, processed)
		content.SourceInfo = &models.SourceInfo{URL: &models.URLSource{
			OriginalURL: processed,
			Title:       fetched.Title,
			ExtractedAt: fetched.ExtractedAt,
			FetchError:  fetched.Error,
		}}
		if fetched.Error == "" {
			processed = "标题: " + fetched.Title + "\n\n内容: " + fetched.Content
			blob = blobSpec{
				data:        []byte(fetched.RawHTML),
				prefix:      "html",
				name:        slug.GenerateWithFallback(fetched.Title, content.ID) + "-" + shortID(content.ID),
				ext:         ".html",
				contentType: "text/html; charset=utf-8",
			}
		} else {
			// Degraded capture: record the attempt, archive nothing.
			processed = fetched.Content
		}

	case models.TypeEmail:
		content.SourceInfo = &models.SourceInfo{Email: &models.EmailSource{
			From:            req.From,
			Subject:         req.Subject,
			ReceivedAt:      now,
			HasAttachments:  req.HasAttachments,
			AttachmentCount: req.AttachmentCount,
		}}
		blob = blobSpec{data: []byte(processed), prefix: "email", name: content.ID, ext: ".txt", contentType: "text/plain; charset=utf-8"}

	case models.TypeImage:
		src := ImageMeta(req.ImageData, req.Filename)
		content.SourceInfo = &models.SourceInfo{Image: src}
		name := req.Filename
		if name == "" {
			name = "image"
		}
		content.OriginalContent = fmt.Sprintf("[Image: %s]", name)
		processed = content.OriginalContent
		imageContentType := http.DetectContentType(req.ImageData)
		blob = blobSpec{
			data:        req.ImageData,
			prefix:      "images",
			name:        slug.GenerateWithFallback(slug.FromFilename(name), content.ID) + "-" + shortID(content.ID),
			ext:         storage.ExtensionForContentType(imageContentType),
			contentType: imageContentType,
		}
	}

	analysis := c.analyzeCapture(ctx, processed, req)

	content.Summary = analysis.Summary
	content.Keywords = analysis.Keywords
	content.Tags = analysis.Tags
	content.Sentiment = analysis.Sentiment
	content.Category = analysis.Category
	content.ImportanceScore = analysis.ImportanceScore
	content.WordCount = WordCount(processed)
	content.ReadingTime = ReadingTime(content.WordCount)

	if c.objects != nil && len(blob.data) > 0 {
		key, err := c.objects.Save(blob.data, storage.Key(blob.prefix, blob.name, blob.ext), blob.contentType)
		if err != nil {
			// The record is still useful without its raw archive.
			slog.Warn("failed to archive raw capture", "id", content.ID, "error", err)
		} else {
			content.ObjectKey = key
		}
	}

	if c.store != nil {
		if err := c.store.SaveContent(content); err != nil {
			return nil, fmt.Errorf("failed to save content: %w", err)
		}
		// Counter updates are deliberately outside any transaction with the
		// content insert: a failure leaves the record durably stored with
		// under-reported counters, which is acceptable.
		if err := c.store.UpsertTags(content.Tags); err != nil {
			slog.Warn("failed to update tag counters", "id", content.ID, "error", err)
		}
		if err := c.store.IncrementDailyStat(now.Format("2006-01-02")); err != nil {
			slog.Warn("failed to update daily stats", "id", content.ID, "error", err)
		}
	}

	return content, nil
}

type blobSpec struct {
	data        []byte
	prefix      string
	name        string
	ext         string
	contentType string
}

// analyzeCapture picks the analysis path for a capture: LLM when configured
// and requested, heuristics otherwise, with per-type defaults applied on
// the heuristic path.
func (c *Collector) analyzeCapture(ctx context.Context, processed string, req CaptureRequest) models.Analysis {
	if c.AIConfigured() && req.AutoTag {
		analysis, err := c.generateAnalysis(ctx, processed, req)
		if err != nil {
			slog.Warn("LLM analysis failed, falling back to heuristics", "error", err)
			analysis = c.basicAnalysis(processed, req)
		}
		if req.Type == models.TypeEmail {
			analysis.Tags = appendIfMissing(analysis.Tags, emailTag)
		}
		return analysis
	}
	return c.basicAnalysis(processed, req)
}

func (c *Collector) generateAnalysis(ctx context.Context, processed string, req CaptureRequest) (models.Analysis, error) {
	prompt := buildAnalysisPrompt(processed, req.DeepAnalysis)
	var image []byte
	if req.Type == models.TypeImage {
		prompt = imageAnalysisPrompt
		image = req.ImageData
	}
	response, err := c.llmClient.Generate(ctx, prompt, image)
	if err != nil {
		return models.Analysis{}, err
	}
	return ParseAnalysis(response, processed), nil
}

// basicAnalysis is the no-model path: heuristics plus fixed per-type tags
// and categories.
func (c *Collector) basicAnalysis(processed string, req CaptureRequest) models.Analysis {
	analysis := HeuristicAnalysis(processed)
	switch req.Type {
	case models.TypeURL:
		analysis.Tags = []string{urlTag}
		analysis.Category = urlCategory
	case models.TypeEmail:
		analysis.Tags = []string{emailTag}
		analysis.Category = emailCategory
		if req.Subject != "" {
			analysis.Summary = req.Subject
		}
	}
	return analysis
}

// Analyze runs model analysis on ad hoc content without persisting
// anything. Returns ErrAINotConfigured when no model is available; a model
// failure degrades to heuristics rather than erroring, same as capture.
func (c *Collector) Analyze(ctx context.Context, content string, deepAnalysis bool) (models.Analysis, error) {
	if !c.AIConfigured() {
		return models.Analysis{}, ErrAINotConfigured
	}
	response, err := c.llmClient.Generate(ctx, buildAnalysisPrompt(content, deepAnalysis), nil)
	if err != nil {
		slog.Warn("LLM analysis failed, falling back to heuristics", "error", err)
		return HeuristicAnalysis(content), nil
	}
	return ParseAnalysis(response, content), nil
}

// GenerateInsight synthesizes a single insight from recent capture
// summaries.
func (c *Collector) GenerateInsight(ctx context.Context, summaries []string) (string, error) {
	if !c.AIConfigured() {
		return "", ErrAINotConfigured
	}
	if len(summaries) == 0 {
		return "", errors.New("no summaries to generate an insight from")
	}
	response, err := c.llmClient.Generate(ctx, buildInsightPrompt(summaries), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate insight: %w", err)
	}
	return strings.TrimSpace(response), nil
}

func appendIfMissing(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
