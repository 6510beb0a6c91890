package collector

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ExtractResult holds the plain text pulled out of an HTML document.
// Table contents are kept apart from the running text so tabular data
// does not get smeared into sentences.
type ExtractResult struct {
	Text   string
	Tables []string
}

var (
	scriptRe   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe    = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptRe = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	commentRe  = regexp.MustCompile(`(?s)<!--.*?-->`)
	tableRe    = regexp.MustCompile(`(?is)<table[^>]*>.*?</table>`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// ExtractText strips markup from an HTML document and returns the plain
// text plus any <table> blocks as separate strings.
//
// This is a tolerant pattern-matching pass, not a conforming HTML parser:
// it cannot fail on malformed markup, at the cost of occasionally letting
// a fragment of a broken tag through. The output feeds analysis prompts,
// where good-enough text beats strict parsing.
func ExtractText(rawHTML string) ExtractResult {
	cleaned := scriptRe.ReplaceAllString(rawHTML, " ")
	cleaned = styleRe.ReplaceAllString(cleaned, " ")
	cleaned = noscriptRe.ReplaceAllString(cleaned, " ")
	cleaned = commentRe.ReplaceAllString(cleaned, " ")

	var tables []string
	for _, block := range tableRe.FindAllString(cleaned, -1) {
		if table := stripTags(block); table != "" {
			tables = append(tables, table)
		}
	}
	cleaned = tableRe.ReplaceAllString(cleaned, " ")

	return ExtractResult{
		Text:   stripTags(cleaned),
		Tables: tables,
	}
}

// stripTags removes markup, decodes common entities and collapses whitespace
func stripTags(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// entityReplacer covers the entities that actually show up in article text.
// Numeric references other than &#39; are left alone.
var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
	"&copy;", "©",
	"&reg;", "®",
	"&trade;", "™",
	"&amp;", "&",
)

// ExtractTitle extracts the page title from an HTML document.
// Priority: og:title > twitter:title > h1 > title tag.
// Returns an empty string when no title is found.
func ExtractTitle(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		// html.Parse recovers from malformed markup; this only fires on
		// reader errors, which strings.Reader never produces.
		return ""
	}

	var ogTitle, twitterTitle, h1Title, htmlTitle string

	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var property, name, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "property":
						property = strings.ToLower(attr.Val)
					case "name":
						name = strings.ToLower(attr.Val)
					case "content":
						content = attr.Val
					}
				}
				if property == "og:title" && ogTitle == "" {
					ogTitle = content
				} else if name == "twitter:title" && twitterTitle == "" {
					twitterTitle = content
				}
			case "h1":
				if h1Title == "" && n.FirstChild != nil {
					h1Title = nodeText(n)
				}
			case "title":
				if htmlTitle == "" && n.FirstChild != nil {
					htmlTitle = n.FirstChild.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(doc)

	// Return first available title in priority order
	if ogTitle != "" {
		return strings.TrimSpace(ogTitle)
	}
	if twitterTitle != "" {
		return strings.TrimSpace(twitterTitle)
	}
	if h1Title != "" {
		return strings.TrimSpace(h1Title)
	}
	return strings.TrimSpace(htmlTitle)
}

// nodeText extracts all text content from a single node and its children
func nodeText(n *html.Node) string {
	var parts []string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return strings.Join(parts, " ")
}
