package collector

import (
	"strings"
	"testing"
)

func TestHeuristicSummaryFirstSentence(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"chinese punctuation", "今天学习了Go语言。还写了一些测试。", "今天学习了Go语言"},
		{"latin punctuation", "Short note. More text follows.", "Short note"},
		{"question mark", "这是什么？不知道。", "这是什么"},
		{"no terminator", "没有标点的内容", "没有标点的内容"},
		{"empty", "", "无标题"},
		{"only punctuation", "。。。", "无标题"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := heuristicSummary(tt.content); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHeuristicSummaryTruncatesLongSentences(t *testing.T) {
	content := strings.Repeat("长", 80) + "。"

	got := heuristicSummary(content)

	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected ellipsis suffix, got %q", got)
	}
	if runes := []rune(got); len(runes) != summaryMaxRunes+3 {
		t.Errorf("Expected %d runes, got %d", summaryMaxRunes+3, len(runes))
	}
}

func TestHeuristicKeywordsByFrequency(t *testing.T) {
	content := "cache cache cache redis redis postgres http http server"

	got := heuristicKeywords(content)

	if len(got) != 5 {
		t.Fatalf("Expected 5 keywords, got %d: %v", len(got), got)
	}
	if got[0] != "cache" {
		t.Errorf("Expected most frequent keyword first, got %v", got)
	}
	// redis and http both appear twice; first-seen order breaks the tie
	if got[1] != "redis" || got[2] != "http" {
		t.Errorf("Expected stable tie ordering [redis http], got %v", got)
	}
}

func TestHeuristicKeywordsDropShortTokens(t *testing.T) {
	got := heuristicKeywords("a b c golang golang")

	if len(got) != 1 || got[0] != "golang" {
		t.Errorf("Expected single-rune tokens dropped, got %v", got)
	}
}

func TestHeuristicKeywordsKeepCJK(t *testing.T) {
	got := heuristicKeywords("数据 分析 数据 模型!")

	if len(got) == 0 || got[0] != "数据" {
		t.Errorf("Expected CJK tokens retained with 数据 first, got %v", got)
	}
}

func TestHeuristicAnalysisDefaults(t *testing.T) {
	analysis := HeuristicAnalysis("一些内容。")

	if analysis.AIUsed {
		t.Error("Expected AIUsed to be false")
	}
	if analysis.Sentiment != 0 {
		t.Errorf("Expected sentiment 0, got %v", analysis.Sentiment)
	}
	if analysis.Category != "general" {
		t.Errorf("Expected category general, got %q", analysis.Category)
	}
	if analysis.ImportanceScore != 0.5 {
		t.Errorf("Expected importance 0.5, got %v", analysis.ImportanceScore)
	}
	if len(analysis.Tags) != 1 || analysis.Tags[0] != "未分类" {
		t.Errorf("Expected default tag, got %v", analysis.Tags)
	}
}

func TestWordCountCountsRunes(t *testing.T) {
	if got := WordCount("中文内容abc"); got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		wordCount int
		want      int
	}{
		{0, 0},
		{1, 1},
		{200, 1},
		{201, 2},
		{1000, 5},
	}

	for _, tt := range tests {
		if got := ReadingTime(tt.wordCount); got != tt.want {
			t.Errorf("ReadingTime(%d): expected %d, got %d", tt.wordCount, tt.want, got)
		}
	}
}
