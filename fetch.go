package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	fetchUserAgent = "Mozilla/5.0 (compatible; Collector/1.0)"
	// Processed page text is capped before prompting; 5000 runes keeps
	// prompts inside every provider's context window.
	maxFetchedRunes = 5000
	// Hard cap on the downloaded body, well above any article we care about.
	maxFetchBytes = 10 << 20

	fetchErrorPrefix = "无法获取URL内容: "
)

// FetchResult is the outcome of fetching a URL. Fetch failures do not
// abort a capture: a failed fetch yields a degraded result whose Error is
// set and whose Content is a placeholder describing the failure.
type FetchResult struct {
	URL         string
	Title       string
	Content     string
	Tables      []string
	RawHTML     string
	ExtractedAt time.Time
	Error       string
}

// ValidateURL rejects anything that is not an absolute http(s) URL.
// Validation happens before any network activity.
func ValidateURL(raw string) error {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return errors.New("URL must start with http:// or https://")
	}
	if _, err := url.Parse(raw); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	return nil
}

// FetchURL retrieves a page and extracts its title and text. The error
// channel is the result itself: network failures and non-2xx statuses are
// reported through FetchResult.Error so the capture pipeline can persist
// the attempt in degraded mode.
func (c *Collector) FetchURL(ctx context.Context, targetURL string) FetchResult {
	result := FetchResult{URL: targetURL, ExtractedAt: time.Now().UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return result.degrade(err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result.degrade(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result.degrade(fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return result.degrade(err)
	}

	rawHTML := string(body)
	extracted := ExtractText(rawHTML)

	result.RawHTML = rawHTML
	result.Title = ExtractTitle(rawHTML)
	result.Content = truncateRunes(extracted.Text, maxFetchedRunes)
	result.Tables = extracted.Tables
	return result
}

func (r FetchResult) degrade(err error) FetchResult {
	r.Error = err.Error()
	r.Content = fetchErrorPrefix + err.Error()
	return r
}

// truncateRunes caps s at n runes, appending an ellipsis when truncated
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
