// Package common_tools provides the scraping toolset the outreach agent can
// call, plus the HTTP client and extractors behind it.
//
// Available tools:
//   - get_html: Fetch a page's raw HTML
//   - html_to_text: Reduce HTML to readable text
//   - extract_links: List the unique links of a page
//   - filter_links: Keep links matching substrings
//   - find_terms_in_text: Locate terms with surrounding context
//   - extract_contacts: Pull emails, phone numbers and opening hours
//   - crawl_once: All of the above for a single URL
//   - wp_search_pages: Search a WordPress site's pages
//   - web_search: Search the web through DuckDuckGo
//
// Tools are registered in a Registry, which validates arguments against each
// tool's declaration before dispatching.
package common_tools
