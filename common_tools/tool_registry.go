package common_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/kindtohomeless/outreach/models"
)

//go:generate go run ../schemas -dir=. -out=../schemas/cached_schemas/toolset.json

const defaultMaxHTMLChars = 100000

type GetHTMLParams struct {
	URL      string `json:"url"`
	MaxChars int    `json:"max_chars"`
}

// GetHTMLTool returns the raw-page tool.
func GetHTMLTool(c *Client) Tool {
	return Tool{
		Declaration: models.FunctionDeclaration{
			Name:        "get_html",
			Description: "Fetch a URL and return its raw HTML.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "HTTP or HTTPS URL to fetch",
					},
					"max_chars": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum characters to return (default: 100000)",
						"default":     defaultMaxHTMLChars,
					},
				},
				Required: []string{"url"},
			},
		},
		Handler: Bind(func() GetHTMLParams { return GetHTMLParams{MaxChars: defaultMaxHTMLChars} },
			func(ctx context.Context, p GetHTMLParams) (interface{}, error) {
				doc, err := c.GetHTML(ctx, p.URL)
				if err != nil {
					return nil, err
				}
				if p.MaxChars > 0 && len(doc) > p.MaxChars {
					doc = truncateUTF8(doc, p.MaxChars) + "\n...(truncated)"
				}
				return doc, nil
			}),
	}
}

type HTMLToTextParams struct {
	HTML string `json:"html"`
}

func HTMLToTextTool() Tool {
	return Tool{
		Declaration: models.FunctionDeclaration{
			Name:        "html_to_text",
			Description: "Strip scripts, styles and tags from HTML and return readable text.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"html": map[string]interface{}{
						"type":        "string",
						"description": "HTML document or fragment",
					},
				},
				Required: []string{"html"},
			},
		},
		Handler: Bind(nil, func(ctx context.Context, p HTMLToTextParams) (interface{}, error) {
			return HTMLToText(p.HTML), nil
		}),
	}
}

type ExtractLinksParams struct {
	HTML          string `json:"html"`
	Base          string `json:"base"`
	AllowExternal bool   `json:"allow_external"`
}

func ExtractLinksTool() Tool {
	return Tool{
		Declaration: models.FunctionDeclaration{
			Name:        "extract_links",
			Description: "List the unique links in an HTML document, resolved against a base URL.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"html": map[string]interface{}{
						"type":        "string",
						"description": "HTML document",
					},
					"base": map[string]interface{}{
						"type":        "string",
						"description": "Page URL used to resolve relative links. Without it only absolute links are kept.",
						"nullable":    true,
					},
					"allow_external": map[string]interface{}{
						"type":        "boolean",
						"description": "Keep links to other hosts (default: true)",
						"default":     true,
					},
				},
				Required: []string{"html"},
			},
		},
		Handler: Bind(func() ExtractLinksParams { return ExtractLinksParams{AllowExternal: true} },
			func(ctx context.Context, p ExtractLinksParams) (interface{}, error) {
				return ExtractLinks(p.HTML, p.Base, p.AllowExternal), nil
			}),
	}
}

type FilterLinksParams struct {
	Links             []string `json:"links"`
	IncludeSubstrings []string `json:"include_substrings"`
	ExcludeSubstrings []string `json:"exclude_substrings"`
	Limit             int      `json:"limit"`
}

func FilterLinksTool() Tool {
	return Tool{
		Declaration: models.FunctionDeclaration{
			Name:        "filter_links",
			Description: "Filter links by case-insensitive substrings, keeping order.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"links": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Links to filter",
					},
					"include_substrings": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Keep only links containing one of these",
						"default":     []string{},
					},
					"exclude_substrings": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Drop links containing any of these",
						"default":     []string{},
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum links to return (0 = no limit)",
					},
				},
				Required: []string{"links"},
			},
		},
		Handler: Bind(nil, func(ctx context.Context, p FilterLinksParams) (interface{}, error) {
			return FilterLinks(p.Links, p.IncludeSubstrings, p.ExcludeSubstrings, p.Limit), nil
		}),
	}
}

type FindTermsParams struct {
	Text    string   `json:"text"`
	Terms   []string `json:"terms"`
	Context int      `json:"context"`
}

func FindTermsInTextTool() Tool {
	return Tool{
		Declaration: models.FunctionDeclaration{
			Name:        "find_terms_in_text",
			Description: "Find the first case-insensitive occurrence of each term in text, with surrounding context.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text to search",
					},
					"terms": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Terms to look for",
					},
					"context": map[string]interface{}{
						"type":        "integer",
						"description": "Characters of context on each side (default: 80)",
						"default":     DefaultTermContext,
					},
				},
				Required: []string{"text", "terms"},
			},
		},
		Handler: Bind(func() FindTermsParams { return FindTermsParams{Context: DefaultTermContext} },
			func(ctx context.Context, p FindTermsParams) (interface{}, error) {
				return FindTermsInText(p.Text, p.Terms, p.Context), nil
			}),
	}
}

type ExtractContactsParams struct {
	Text string `json:"text"`
}

func ExtractContactsTool() Tool {
	return Tool{
		Declaration: models.FunctionDeclaration{
			Name:        "extract_contacts",
			Description: "Extract emails, phone numbers and opening hours from text.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Plain text, for example the output of html_to_text",
					},
				},
				Required: []string{"text"},
			},
		},
		Handler: Bind(nil, func(ctx context.Context, p ExtractContactsParams) (interface{}, error) {
			return ExtractContacts(p.Text), nil
		}),
	}
}

type CrawlOnceParams struct {
	URL                string   `json:"url"`
	Terms              []string `json:"terms"`
	AllowExternalLinks bool     `json:"allow_external_links"`
}

func CrawlOnceTool(c *Client) Tool {
	return Tool{
		Declaration: models.FunctionDeclaration{
			Name:        "crawl_once",
			Description: "Fetch one page and return its title, text, links, term hits, emails, phones and hours. Does not follow links.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "Page to crawl",
					},
					"terms": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Terms to look for in the page text",
						"default":     []string{},
					},
					"allow_external_links": map[string]interface{}{
						"type":        "boolean",
						"description": "Include links to other hosts (default: false)",
						"default":     false,
					},
				},
				Required: []string{"url"},
			},
		},
		Handler: Bind(nil, func(ctx context.Context, p CrawlOnceParams) (interface{}, error) {
			return c.CrawlOnce(ctx, CrawlOptions{URL: p.URL, Terms: p.Terms, AllowExternalLinks: p.AllowExternalLinks})
		}),
	}
}

type WPSearchParams struct {
	BaseURL string `json:"base_url"`
	Query   string `json:"query"`
	PerPage int    `json:"per_page"`
}

func WPSearchPagesTool(c *Client) Tool {
	return Tool{
		Declaration: models.FunctionDeclaration{
			Name:        "wp_search_pages",
			Description: "Search the pages of a WordPress site through its REST API.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"base_url": map[string]interface{}{
						"type":        "string",
						"description": "Site root, e.g. https://example.org",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search terms",
					},
					"per_page": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum pages to return (default: 10)",
						"default":     10,
					},
				},
				Required: []string{"base_url", "query"},
			},
		},
		Handler: Bind(func() WPSearchParams { return WPSearchParams{PerPage: 10} },
			func(ctx context.Context, p WPSearchParams) (interface{}, error) {
				return c.WPSearchPages(ctx, p.BaseURL, p.Query, p.PerPage), nil
			}),
	}
}

type WebSearchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// WebSearchTool returns the web search tool backed by s.
func WebSearchTool(s Searcher) Tool {
	return Tool{
		Declaration: models.FunctionDeclaration{
			Name:        "web_search",
			Description: "Search the web. Returns result titles and URLs.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search query string",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum results (default: 10)",
						"default":     10,
					},
				},
				Required: []string{"query"},
			},
		},
		Handler: Bind(func() WebSearchParams { return WebSearchParams{Limit: 10} },
			func(ctx context.Context, p WebSearchParams) (interface{}, error) {
				if strings.TrimSpace(p.Query) == "" {
					return nil, fmt.Errorf("search query cannot be empty")
				}
				return s.Search(ctx, p.Query, p.Limit)
			}),
	}
}

// DefaultTools returns the scraping toolset. web_search is included when s
// is non-nil.
func DefaultTools(c *Client, s Searcher) []Tool {
	tools := []Tool{
		GetHTMLTool(c),
		HTMLToTextTool(),
		ExtractLinksTool(),
		FilterLinksTool(),
		FindTermsInTextTool(),
		ExtractContactsTool(),
		CrawlOnceTool(c),
		WPSearchPagesTool(c),
	}
	if s != nil {
		tools = append(tools, WebSearchTool(s))
	}
	return tools
}

// DefaultRegistry builds the registry over DefaultTools.
func DefaultRegistry(c *Client, s Searcher) (*Registry, error) {
	return NewRegistry(DefaultTools(c, s)...)
}
