package common_tools

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultSearchURL is DuckDuckGo's script-free results page.
const DefaultSearchURL = "https://html.duckduckgo.com/html/"

var (
	reAnchor     = regexp.MustCompile(`(?is)<a\s([^>]*)>(.*?)</a>`)
	reAnchorHref = regexp.MustCompile(`(?i)href=["']([^"']+)["']`)
)

// SearchResult is one web search hit.
type SearchResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Searcher is a text search backend.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// DuckDuckGo scrapes the HTML results page; it needs no API key.
type DuckDuckGo struct {
	Client  *Client
	BaseURL string
}

func NewDuckDuckGo(client *Client, baseURL string) *DuckDuckGo {
	if baseURL == "" {
		baseURL = DefaultSearchURL
	}
	return &DuckDuckGo{Client: client, BaseURL: baseURL}
}

// Search returns up to limit organic results for query.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}
	resp, err := d.Client.PostForm(ctx, d.BaseURL, url.Values{"q": {query}}, 20*time.Second)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	return parseSearchResults(string(resp.Body), limit), nil
}

func parseSearchResults(doc string, limit int) []SearchResult {
	results := []SearchResult{}
	seen := map[string]bool{}
	for _, m := range reAnchor.FindAllStringSubmatch(doc, -1) {
		attrs := m[1]
		if !strings.Contains(attrs, "result__a") {
			continue
		}
		hm := reAnchorHref.FindStringSubmatch(attrs)
		if hm == nil {
			continue
		}
		target := unwrapRedirect(html.UnescapeString(hm[1]))
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		results = append(results, SearchResult{URL: target, Title: HTMLToText(m[2])})
		if len(results) >= limit {
			break
		}
	}
	return results
}

// unwrapRedirect turns DuckDuckGo's /l/?uddg= redirect links into the
// destination URL and drops ads and anything that is not http(s).
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") {
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		href = target
	}
	if !IsHTTPURL(href) {
		return ""
	}
	return href
}
