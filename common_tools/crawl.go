package common_tools

import (
	"context"
	"fmt"
)

// crawlTextMax caps the page text returned by CrawlOnce.
const crawlTextMax = 50000

type CrawlOptions struct {
	URL   string
	Terms []string
	// AllowExternalLinks keeps links to other hosts in the result.
	AllowExternalLinks bool
}

// CrawlResult is everything a single page fetch yields.
type CrawlResult struct {
	URL    string    `json:"url"`
	Title  string    `json:"title"`
	Text   string    `json:"text"`
	Links  []string  `json:"links"`
	Hits   []TermHit `json:"hits"`
	Emails []string  `json:"emails"`
	Phones []string  `json:"phones"`
	Hours  []string  `json:"hours"`
}

// CrawlOnce fetches one page and extracts title, text, links, term hits
// and contact details. It does not follow links.
func (c *Client) CrawlOnce(ctx context.Context, opts CrawlOptions) (CrawlResult, error) {
	if opts.URL == "" {
		return CrawlResult{}, fmt.Errorf("url is required")
	}
	doc, err := c.GetHTML(ctx, opts.URL)
	if err != nil {
		return CrawlResult{}, fmt.Errorf("crawling %s: %w", opts.URL, err)
	}
	text := HTMLToText(doc)
	contacts := ExtractContacts(text)
	if len(text) > crawlTextMax {
		text = truncateUTF8(text, crawlTextMax)
	}
	return CrawlResult{
		URL:    opts.URL,
		Title:  ExtractTitle(doc),
		Text:   text,
		Links:  ExtractLinks(doc, opts.URL, opts.AllowExternalLinks),
		Hits:   FindTermsInText(text, opts.Terms, DefaultTermContext),
		Emails: contacts.Emails,
		Phones: contacts.Phones,
		Hours:  contacts.Hours,
	}, nil
}

// PageTerms is the result of FindTermsInURL.
type PageTerms struct {
	URL   string    `json:"url"`
	Title string    `json:"title"`
	Hits  []TermHit `json:"hits"`
}

// FindTermsInURL fetches a page and searches its text for terms.
func (c *Client) FindTermsInURL(ctx context.Context, rawURL string, terms []string, context int) (PageTerms, error) {
	doc, err := c.GetHTML(ctx, rawURL)
	if err != nil {
		return PageTerms{}, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	return PageTerms{
		URL:   rawURL,
		Title: ExtractTitle(doc),
		Hits:  FindTermsInText(HTMLToText(doc), terms, context),
	}, nil
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
