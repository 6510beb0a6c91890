package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zombar/collector/models"
)

// setupTestDB connects to the database named by TEST_DATABASE_DSN and wipes
// the tables between tests. Skipped when the variable is unset, so the
// suite runs without a local Postgres.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	database, err := New(Config{DSN: dsn})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	for _, table := range []string{"contents", "tags", "daily_stats", "insights"} {
		if _, err := database.conn.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("Failed to clear table %s: %v", table, err)
		}
	}

	return database
}

func testContent() *models.Content {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Content{
		ID:              uuid.New().String(),
		OriginalContent: "今天读完了一本书。",
		ContentType:     models.TypeText,
		Summary:         "今天读完了一本书",
		Keywords:        []string{"读书"},
		Tags:            []string{"未分类"},
		Sentiment:       0.2,
		Category:        "general",
		ImportanceScore: 0.5,
		WordCount:       9,
		ReadingTime:     1,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastAccessed:    now,
	}
}

func TestSaveContentAndGetByID(t *testing.T) {
	database := setupTestDB(t)

	content := testContent()
	content.SourceInfo = &models.SourceInfo{URL: &models.URLSource{
		OriginalURL: "https://example.com/post",
		Title:       "A Post",
		ExtractedAt: content.CreatedAt,
	}}

	if err := database.SaveContent(content); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}

	got, err := database.GetByID(content.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected content, got nil")
	}
	if got.OriginalContent != content.OriginalContent {
		t.Errorf("Expected original content %q, got %q", content.OriginalContent, got.OriginalContent)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "未分类" {
		t.Errorf("Expected tags roundtrip, got %v", got.Tags)
	}
	if got.SourceInfo == nil || got.SourceInfo.URL == nil {
		t.Fatal("Expected source info roundtrip")
	}
	if got.SourceInfo.URL.Title != "A Post" {
		t.Errorf("Expected title roundtrip, got %q", got.SourceInfo.URL.Title)
	}
	if got.ImportanceScore != 0.5 {
		t.Errorf("Expected importance 0.5, got %f", got.ImportanceScore)
	}
}

func TestGetByIDMissing(t *testing.T) {
	database := setupTestDB(t)

	got, err := database.GetByID(uuid.New().String())
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing id, got %+v", got)
	}
}

func TestTouchLastAccessed(t *testing.T) {
	database := setupTestDB(t)

	content := testContent()
	content.LastAccessed = content.LastAccessed.Add(-24 * time.Hour)
	if err := database.SaveContent(content); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}

	if err := database.TouchLastAccessed(content.ID); err != nil {
		t.Fatalf("TouchLastAccessed failed: %v", err)
	}

	got, err := database.GetByID(content.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.LastAccessed.After(content.LastAccessed) {
		t.Errorf("Expected last accessed bumped, got %v", got.LastAccessed)
	}
}

func TestListPaginationAndSearch(t *testing.T) {
	database := setupTestDB(t)

	for i := 0; i < 5; i++ {
		content := testContent()
		content.OriginalContent = fmt.Sprintf("note number %d", i)
		content.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if i == 0 {
			content.Category = "article"
		}
		if err := database.SaveContent(content); err != nil {
			t.Fatalf("SaveContent failed: %v", err)
		}
	}

	contents, total, err := database.List(ListOptions{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if len(contents) != 2 {
		t.Errorf("Expected 2 contents, got %d", len(contents))
	}
	// Newest first.
	if len(contents) == 2 && contents[0].CreatedAt.Before(contents[1].CreatedAt) {
		t.Error("Expected descending created_at order")
	}

	contents, total, err = database.List(ListOptions{Page: 1, Limit: 10, Search: "number 3"})
	if err != nil {
		t.Fatalf("List with search failed: %v", err)
	}
	if total != 1 || len(contents) != 1 {
		t.Errorf("Expected 1 search hit, got total=%d len=%d", total, len(contents))
	}

	_, total, err = database.List(ListOptions{Page: 1, Limit: 10, Category: "article"})
	if err != nil {
		t.Fatalf("List with category failed: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected 1 article, got %d", total)
	}
}

func TestUpdateContent(t *testing.T) {
	database := setupTestDB(t)

	content := testContent()
	if err := database.SaveContent(content); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}

	summary := "updated summary"
	tags := []string{"工作", "学习"}
	importance := 0.9
	err := database.UpdateContent(content.ID, UpdateFields{
		Summary:         &summary,
		Tags:            &tags,
		ImportanceScore: &importance,
	})
	if err != nil {
		t.Fatalf("UpdateContent failed: %v", err)
	}

	got, err := database.GetByID(content.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Summary != summary {
		t.Errorf("Expected summary %q, got %q", summary, got.Summary)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "工作" {
		t.Errorf("Expected updated tags, got %v", got.Tags)
	}
	if got.ImportanceScore != 0.9 {
		t.Errorf("Expected importance 0.9, got %f", got.ImportanceScore)
	}
	if !got.UpdatedAt.After(content.UpdatedAt) {
		t.Errorf("Expected updated_at bumped, got %v", got.UpdatedAt)
	}
}

func TestUpdateContentValidation(t *testing.T) {
	database := setupTestDB(t)

	if err := database.UpdateContent(uuid.New().String(), UpdateFields{}); err == nil {
		t.Error("Expected error for no fields")
	}

	summary := "x"
	if err := database.UpdateContent(uuid.New().String(), UpdateFields{Summary: &summary}); err == nil {
		t.Error("Expected error for missing id")
	}
}

func TestDeleteByID(t *testing.T) {
	database := setupTestDB(t)

	content := testContent()
	if err := database.SaveContent(content); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}

	if err := database.DeleteByID(content.ID); err != nil {
		t.Fatalf("DeleteByID failed: %v", err)
	}

	got, err := database.GetByID(content.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Error("Expected content gone after delete")
	}

	if err := database.DeleteByID(content.ID); err == nil {
		t.Error("Expected error deleting missing id")
	}
}

func TestSearchByTagAndCategory(t *testing.T) {
	database := setupTestDB(t)

	tagged := testContent()
	tagged.Tags = []string{"工作"}
	tagged.Category = "article"
	if err := database.SaveContent(tagged); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}
	other := testContent()
	if err := database.SaveContent(other); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}

	contents, err := database.Search(SearchOptions{Tags: []string{"工作"}, Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(contents) != 1 || contents[0].ID != tagged.ID {
		t.Errorf("Expected the tagged record, got %d results", len(contents))
	}

	contents, err = database.Search(SearchOptions{Category: "article", Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(contents) != 1 {
		t.Errorf("Expected 1 article, got %d", len(contents))
	}

	contents, err = database.Search(SearchOptions{Query: "读完", Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(contents) != 2 {
		t.Errorf("Expected 2 text matches, got %d", len(contents))
	}
}

func TestUpsertTagsCounts(t *testing.T) {
	database := setupTestDB(t)

	if err := database.UpsertTags([]string{"工作", "学习"}); err != nil {
		t.Fatalf("UpsertTags failed: %v", err)
	}
	if err := database.UpsertTags([]string{"工作", " ", ""}); err != nil {
		t.Fatalf("UpsertTags failed: %v", err)
	}

	tags, err := database.ListTags(10)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("Expected 2 tags, got %d", len(tags))
	}
	// Highest count first.
	if tags[0].Name != "工作" || tags[0].Count != 2 {
		t.Errorf("Expected 工作 with count 2 first, got %s/%d", tags[0].Name, tags[0].Count)
	}
	if tags[1].Count != 1 {
		t.Errorf("Expected count 1 for %s, got %d", tags[1].Name, tags[1].Count)
	}
}

func TestCreateTagDuplicate(t *testing.T) {
	database := setupTestDB(t)

	tag, err := database.CreateTag("工作", "工作相关")
	if err != nil {
		t.Fatalf("CreateTag failed: %v", err)
	}
	if tag.Name != "工作" || tag.Count != 0 {
		t.Errorf("Expected fresh tag with count 0, got %+v", tag)
	}

	if _, err := database.CreateTag("工作", ""); !errors.Is(err, ErrTagExists) {
		t.Errorf("Expected ErrTagExists, got %v", err)
	}
}

func TestIncrementDailyStat(t *testing.T) {
	database := setupTestDB(t)

	date := time.Now().UTC().Format("2006-01-02")
	if err := database.IncrementDailyStat(date); err != nil {
		t.Fatalf("IncrementDailyStat failed: %v", err)
	}
	if err := database.IncrementDailyStat(date); err != nil {
		t.Fatalf("IncrementDailyStat failed: %v", err)
	}

	var count int
	err := database.conn.QueryRow("SELECT new_contents FROM daily_stats WHERE date = $1", date).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to read daily stat: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected new_contents 2, got %d", count)
	}
}

func TestGetStats(t *testing.T) {
	database := setupTestDB(t)

	positive := testContent()
	positive.Sentiment = 0.8
	if err := database.SaveContent(positive); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}
	negative := testContent()
	negative.Sentiment = -0.4
	if err := database.SaveContent(negative); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}
	if err := database.UpsertTags([]string{"工作"}); err != nil {
		t.Fatalf("UpsertTags failed: %v", err)
	}

	stats, err := database.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalContents != 2 {
		t.Errorf("Expected 2 total contents, got %d", stats.TotalContents)
	}
	if stats.TodayContents != 2 {
		t.Errorf("Expected 2 contents today, got %d", stats.TodayContents)
	}
	if stats.TotalTags != 1 {
		t.Errorf("Expected 1 tag, got %d", stats.TotalTags)
	}
	want := (0.8 + -0.4) / 2
	if diff := stats.AvgSentiment - want; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("Expected avg sentiment %f, got %f", want, stats.AvgSentiment)
	}
	if len(stats.RecentDays) != 0 {
		t.Errorf("Expected no daily rows without captures, got %d", len(stats.RecentDays))
	}
}

func TestGetStatsRecentDays(t *testing.T) {
	database := setupTestDB(t)

	today := time.Now().UTC().Format("2006-01-02")
	if err := database.IncrementDailyStat("2026-08-01"); err != nil {
		t.Fatalf("IncrementDailyStat failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := database.IncrementDailyStat(today); err != nil {
			t.Fatalf("IncrementDailyStat failed: %v", err)
		}
	}

	stats, err := database.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if len(stats.RecentDays) != 2 {
		t.Fatalf("Expected 2 daily rows, got %d", len(stats.RecentDays))
	}
	if stats.RecentDays[0].Date != today {
		t.Errorf("Expected newest day first, got %s", stats.RecentDays[0].Date)
	}
	if stats.RecentDays[0].NewContents != 3 {
		t.Errorf("Expected 3 captures today, got %d", stats.RecentDays[0].NewContents)
	}
}

func TestInsightsRoundTrip(t *testing.T) {
	database := setupTestDB(t)

	insight := &models.Insight{
		ID:          uuid.New().String(),
		InsightText: "最近的内容集中在学习上。",
		PeriodStart: "2026-08-01",
		CreatedAt:   time.Now().UTC(),
	}
	if err := database.SaveInsight(insight); err != nil {
		t.Fatalf("SaveInsight failed: %v", err)
	}

	insights, err := database.ListInsights(10)
	if err != nil {
		t.Fatalf("ListInsights failed: %v", err)
	}
	if len(insights) != 1 {
		t.Fatalf("Expected 1 insight, got %d", len(insights))
	}
	if insights[0].InsightText != insight.InsightText {
		t.Errorf("Expected text roundtrip, got %q", insights[0].InsightText)
	}
}

func TestRecentSummaries(t *testing.T) {
	database := setupTestDB(t)

	old := testContent()
	old.CreatedAt = time.Now().UTC().Add(-60 * 24 * time.Hour)
	if err := database.SaveContent(old); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}
	recent := testContent()
	recent.Summary = "最近的笔记"
	if err := database.SaveContent(recent); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}
	blank := testContent()
	blank.Summary = ""
	if err := database.SaveContent(blank); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}

	summaries, err := database.RecentSummaries(time.Now().UTC().Add(-30*24*time.Hour), 10)
	if err != nil {
		t.Fatalf("RecentSummaries failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 summary, got %d", len(summaries))
	}
	if summaries[0] != "最近的笔记" {
		t.Errorf("Expected recent summary, got %q", summaries[0])
	}
}

func TestCountContents(t *testing.T) {
	database := setupTestDB(t)

	count, err := database.CountContents()
	if err != nil {
		t.Fatalf("CountContents failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0, got %d", count)
	}

	if err := database.SaveContent(testContent()); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}

	count, err = database.CountContents()
	if err != nil {
		t.Fatalf("CountContents failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1, got %d", count)
	}
}

func TestMigrationStatus(t *testing.T) {
	database := setupTestDB(t)

	status, err := GetMigrationStatus(database.conn)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if len(status) != len(postgresMigrations) {
		t.Fatalf("Expected %d migrations, got %d", len(postgresMigrations), len(status))
	}
	for _, s := range status {
		if !s.Applied {
			t.Errorf("Expected migration %d (%s) applied", s.Version, s.Name)
		}
	}
}

func TestRollback(t *testing.T) {
	database := setupTestDB(t)

	if err := Rollback(database.conn); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	status, err := GetMigrationStatus(database.conn)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	last := status[len(status)-1]
	if last.Applied {
		t.Errorf("Expected migration %d rolled back", last.Version)
	}
	for _, s := range status[:len(status)-1] {
		if !s.Applied {
			t.Errorf("Expected migration %d still applied", s.Version)
		}
	}

	// Restore the schema for the remaining tests.
	if err := Migrate(database.conn); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
}
