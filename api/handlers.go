package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombar/collector"
	"github.com/zombar/collector/db"
	"github.com/zombar/collector/models"
)

const (
	captureTimeout = 2 * time.Minute
	maxImageBytes  = 10 << 20
)

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count, err := s.store.CountContents()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get count")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"count":  count,
		"time":   time.Now(),
	})
}

// handleVersion returns service name and version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"name":    "collector",
		"version": s.version,
	})
}

// SubmitContentRequest represents a text or URL capture request
type SubmitContentRequest struct {
	Content      string `json:"content"`
	Type         string `json:"type"`
	AutoTag      *bool  `json:"autoTag"`
	DeepAnalysis bool   `json:"deepAnalysis"`
}

// handleContent captures text, URLs (JSON body) and images (multipart)
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req collector.CaptureRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		imageReq, err := parseImageUpload(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = *imageReq
	} else {
		var body SubmitContentRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(body.Content) == "" {
			respondError(w, http.StatusBadRequest, "content is required")
			return
		}

		contentType := models.ContentType(body.Type)
		if body.Type == "" {
			contentType = models.TypeText
		}
		switch contentType {
		case models.TypeText:
		case models.TypeURL:
			// Reject before any network activity happens.
			if err := collector.ValidateURL(strings.TrimSpace(body.Content)); err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
		default:
			respondError(w, http.StatusBadRequest, "type must be text or url")
			return
		}

		req = collector.CaptureRequest{
			Type:         contentType,
			Content:      body.Content,
			AutoTag:      body.AutoTag == nil || *body.AutoTag,
			DeepAnalysis: body.DeepAnalysis,
		}
	}

	s.capture(w, r, req)
}

// parseImageUpload reads an image capture from a multipart form
func parseImageUpload(r *http.Request) (*collector.CaptureRequest, error) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return nil, errors.New("invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("image file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		return nil, errors.New("failed to read image data")
	}
	if len(data) == 0 {
		return nil, errors.New("image file is empty")
	}

	return &collector.CaptureRequest{
		Type:      models.TypeImage,
		ImageData: data,
		Filename:  header.Filename,
		AutoTag:   r.FormValue("autoTag") != "false",
	}, nil
}

// EmailRequest represents an inbound email capture
type EmailRequest struct {
	From        string            `json:"from"`
	Subject     string            `json:"subject"`
	Text        string            `json:"text"`
	HTML        string            `json:"html"`
	Attachments []EmailAttachment `json:"attachments"`
}

// EmailAttachment describes an attachment by name only; bodies are not accepted
type EmailAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// handleEmail captures an inbound email
func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	body := strings.TrimSpace(req.Text)
	if body == "" && req.HTML != "" {
		body = collector.ExtractText(req.HTML).Text
	}
	if body == "" {
		respondError(w, http.StatusBadRequest, "email content is required")
		return
	}

	var b strings.Builder
	if req.Subject != "" {
		b.WriteString("主题: " + req.Subject + "\n\n")
	}
	b.WriteString(body)
	if len(req.Attachments) > 0 {
		b.WriteString("\n\n附件:")
		for _, att := range req.Attachments {
			b.WriteString("\n- " + att.Filename)
			if att.ContentType != "" {
				b.WriteString(" (" + att.ContentType + ")")
			}
		}
	}

	s.capture(w, r, collector.CaptureRequest{
		Type:            models.TypeEmail,
		Content:         b.String(),
		AutoTag:         true,
		From:            req.From,
		Subject:         req.Subject,
		HasAttachments:  len(req.Attachments) > 0,
		AttachmentCount: len(req.Attachments),
	})
}

// CaptureResponse is the payload returned by the capture endpoints
type CaptureResponse struct {
	ID             string   `json:"id"`
	Summary        string   `json:"summary"`
	Tags           []string `json:"tags"`
	Sentiment      float64  `json:"sentiment"`
	Category       string   `json:"category"`
	ExtractedTitle string   `json:"extractedTitle"`
}

// EmailCaptureResponse carries the envelope fields alongside the capture result
type EmailCaptureResponse struct {
	CaptureResponse
	From    string `json:"from"`
	Subject string `json:"subject"`
}

// capture runs the pipeline for a validated request and writes the response
func (s *Server) capture(w http.ResponseWriter, r *http.Request, req collector.CaptureRequest) {
	ctx, cancel := context.WithTimeout(r.Context(), captureTimeout)
	defer cancel()

	content, err := s.collector.Capture(ctx, req)
	if err != nil {
		slog.Error("capture failed", "type", req.Type, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save content")
		return
	}

	s.captureMetrics.ObserveCapture(string(content.ContentType), s.collector.AIConfigured() && req.AutoTag)

	resp := CaptureResponse{
		ID:        content.ID,
		Summary:   content.Summary,
		Tags:      content.Tags,
		Sentiment: content.Sentiment,
		Category:  content.Category,
	}
	if content.SourceInfo != nil && content.SourceInfo.URL != nil {
		resp.ExtractedTitle = content.SourceInfo.URL.Title
	}
	if req.Type == models.TypeEmail {
		respondData(w, http.StatusOK, EmailCaptureResponse{
			CaptureResponse: resp,
			From:            req.From,
			Subject:         req.Subject,
		})
		return
	}
	respondData(w, http.StatusOK, resp)
}

// handleListContents returns a page of content records
func (s *Server) handleListContents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	opts := db.ListOptions{
		Page:     queryInt(r, "page", 1),
		Limit:    clampLimit(queryInt(r, "limit", 20)),
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}
	if opts.Page < 1 {
		opts.Page = 1
	}

	contents, total, err := s.store.List(opts)
	if err != nil {
		slog.Error("failed to list contents", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list contents")
		return
	}
	if contents == nil {
		contents = []*models.Content{}
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"contents": contents,
		"pagination": map[string]interface{}{
			"page":    opts.Page,
			"limit":   opts.Limit,
			"total":   total,
			"hasMore": opts.Page*opts.Limit < total,
		},
	})
}

// handleContentByID dispatches GET, PUT and DELETE for a single record
func (s *Server) handleContentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/content/")
	if id == "" || strings.Contains(id, "/") {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getContent(w, id)
	case http.MethodPut:
		s.updateContent(w, r, id)
	case http.MethodDelete:
		s.deleteContent(w, id)
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) getContent(w http.ResponseWriter, id string) {
	content, err := s.store.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	if content == nil {
		respondError(w, http.StatusNotFound, "content not found")
		return
	}

	if err := s.store.TouchLastAccessed(id); err != nil {
		slog.Warn("failed to update last accessed", "id", id, "error", err)
	}

	respondData(w, http.StatusOK, content)
}

// UpdateContentRequest represents a partial content update
type UpdateContentRequest struct {
	Summary         *string   `json:"summary"`
	Tags            *[]string `json:"tags"`
	Category        *string   `json:"category"`
	ImportanceScore *float64  `json:"importance_score"`
}

func (s *Server) updateContent(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Summary == nil && req.Tags == nil && req.Category == nil && req.ImportanceScore == nil {
		respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if req.ImportanceScore != nil && (*req.ImportanceScore < 0 || *req.ImportanceScore > 1) {
		respondError(w, http.StatusBadRequest, "importance_score must be between 0 and 1")
		return
	}

	err := s.store.UpdateContent(id, db.UpdateFields{
		Summary:         req.Summary,
		Tags:            req.Tags,
		Category:        req.Category,
		ImportanceScore: req.ImportanceScore,
	})
	if err != nil {
		if strings.Contains(err.Error(), "no content found") {
			respondError(w, http.StatusNotFound, "content not found")
			return
		}
		slog.Error("failed to update content", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update content")
		return
	}

	// New tags feed the counters like a fresh capture would.
	if req.Tags != nil {
		if err := s.store.UpsertTags(*req.Tags); err != nil {
			slog.Warn("failed to update tag counters", "id", id, "error", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "content updated",
	})
}

func (s *Server) deleteContent(w http.ResponseWriter, id string) {
	content, err := s.store.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	if content == nil {
		respondError(w, http.StatusNotFound, "content not found")
		return
	}

	// Blob first, best effort: an orphaned object is better than a record
	// pointing at nothing.
	if content.ObjectKey != "" && s.objects != nil {
		if err := s.objects.Delete(content.ObjectKey); err != nil {
			slog.Warn("failed to delete archived object", "id", id, "key", content.ObjectKey, "error", err)
		}
	}

	if err := s.store.DeleteByID(id); err != nil {
		slog.Error("failed to delete content", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete content")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "content deleted",
	})
}

// handleStats returns the dashboard aggregates
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		slog.Error("failed to gather stats", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to gather stats")
		return
	}

	respondData(w, http.StatusOK, stats)
}

// CreateTagRequest represents a manual tag creation
type CreateTagRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleTags lists tags (GET) and creates them (POST)
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tags, err := s.store.ListTags(clampLimit(queryInt(r, "limit", 50)))
		if err != nil {
			slog.Error("failed to list tags", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to list tags")
			return
		}
		if tags == nil {
			tags = []*models.Tag{}
		}
		respondData(w, http.StatusOK, tags)

	case http.MethodPost:
		var req CreateTagRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			respondError(w, http.StatusBadRequest, "tag name is required")
			return
		}

		tag, err := s.store.CreateTag(req.Name, req.Description)
		if err != nil {
			if errors.Is(err, db.ErrTagExists) {
				respondError(w, http.StatusConflict, "tag already exists")
				return
			}
			slog.Error("failed to create tag", "name", req.Name, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to create tag")
			return
		}
		respondData(w, http.StatusOK, tag)

	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSearch searches content by text, category and tags
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	opts := db.SearchOptions{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Limit:    clampLimit(queryInt(r, "limit", 20)),
		Offset:   queryInt(r, "offset", 0),
	}
	if raw := q.Get("tags"); raw != "" {
		opts.Tags = strings.Split(raw, ",")
	}
	if opts.Query == "" && opts.Category == "" && len(opts.Tags) == 0 {
		respondError(w, http.StatusBadRequest, "at least one of q, category or tags is required")
		return
	}

	contents, err := s.store.Search(opts)
	if err != nil {
		slog.Error("search failed", "error", err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if contents == nil {
		contents = []*models.Content{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    contents,
		"pagination": map[string]interface{}{
			"limit":  opts.Limit,
			"offset": opts.Offset,
			"total":  len(contents),
		},
	})
}

// AnalyzeRequest represents an ad hoc analysis request
type AnalyzeRequest struct {
	Content      string `json:"content"`
	DeepAnalysis bool   `json:"deepAnalysis"`
}

// handleAnalyze analyzes content without persisting anything
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), captureTimeout)
	defer cancel()

	analysis, err := s.collector.Analyze(ctx, req.Content, req.DeepAnalysis)
	if err != nil {
		if errors.Is(err, collector.ErrAINotConfigured) {
			respondError(w, http.StatusServiceUnavailable, "AI analysis is not configured")
			return
		}
		slog.Error("analysis failed", "error", err)
		respondError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	wordCount := collector.WordCount(req.Content)
	respondData(w, http.StatusOK, map[string]interface{}{
		"summary":          analysis.Summary,
		"keywords":         analysis.Keywords,
		"tags":             analysis.Tags,
		"sentiment":        analysis.Sentiment,
		"category":         analysis.Category,
		"importance_score": analysis.ImportanceScore,
		"insights":         analysis.Insights,
		"ai_used":          analysis.AIUsed,
		"word_count":       wordCount,
		"reading_time":     collector.ReadingTime(wordCount),
	})
}

// handleInsights lists generated insights
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	insights, err := s.store.ListInsights(clampLimit(queryInt(r, "limit", 50)))
	if err != nil {
		slog.Error("failed to list insights", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list insights")
		return
	}
	if insights == nil {
		insights = []*models.Insight{}
	}
	respondData(w, http.StatusOK, insights)
}

// insightWindow is how far back insight generation looks
const insightWindow = 30 * 24 * time.Hour

// handleGenerateInsight synthesizes a new insight from recent captures
func (s *Server) handleGenerateInsight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.collector.AIConfigured() {
		respondError(w, http.StatusServiceUnavailable, "AI analysis is not configured")
		return
	}

	now := time.Now().UTC()
	summaries, err := s.store.RecentSummaries(now.Add(-insightWindow), 50)
	if err != nil {
		slog.Error("failed to load recent summaries", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load recent summaries")
		return
	}
	if len(summaries) == 0 {
		respondError(w, http.StatusBadRequest, "not enough content to generate an insight")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), captureTimeout)
	defer cancel()

	text, err := s.collector.GenerateInsight(ctx, summaries)
	if err != nil {
		slog.Error("insight generation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "insight generation failed")
		return
	}

	insight := &models.Insight{
		ID:          uuid.New().String(),
		InsightText: text,
		PeriodStart: now.Add(-insightWindow).Format("2006-01-02"),
		CreatedAt:   now,
	}
	if err := s.store.SaveInsight(insight); err != nil {
		slog.Error("failed to save insight", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save insight")
		return
	}

	respondData(w, http.StatusOK, insight)
}

// queryInt parses an integer query parameter with a default
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// clampLimit caps page sizes at 100
func clampLimit(limit int) int {
	if limit < 1 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
