package common_tools

import (
	"context"
	"errors"
	"net/url"
	"strconv"
)

// wpSearchPath is resolved against the site root, whatever path the base URL has.
const wpSearchPath = "/wp-json/wp/v2/search"

// WPPage is one WordPress search hit.
type WPPage struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// WPSearchResult never carries a Go error: failures are reported in-band so
// the agent can react to them.
type WPSearchResult struct {
	OK      bool     `json:"ok"`
	Status  int      `json:"status,omitempty"`
	Error   string   `json:"error,omitempty"`
	Results []WPPage `json:"results"`
}

type wpSearchItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// WPSearchPages queries a WordPress site's REST search endpoint for pages.
func (c *Client) WPSearchPages(ctx context.Context, baseURL, query string, perPage int) WPSearchResult {
	if perPage <= 0 {
		perPage = 10
	}
	endpoint, ok := NormalizeURL(baseURL, wpSearchPath)
	if !ok || !IsHTTPURL(endpoint) {
		return WPSearchResult{OK: false, Error: "invalid base url: " + baseURL, Results: []WPPage{}}
	}
	params := url.Values{
		"search":   {query},
		"subtype":  {"page"},
		"per_page": {strconv.Itoa(perPage)},
	}

	var items []wpSearchItem
	err := c.GetJSON(ctx, endpoint, params, &items)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return WPSearchResult{OK: false, Status: httpErr.Status, Results: []WPPage{}}
		}
		return WPSearchResult{OK: false, Error: err.Error(), Results: []WPPage{}}
	}

	pages := make([]WPPage, 0, len(items))
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		pages = append(pages, WPPage{Title: it.Title, URL: CanonicalizeURL(it.URL, true)})
	}
	return WPSearchResult{OK: true, Results: pages}
}
