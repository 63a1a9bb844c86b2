package common_tools

import (
	"net/url"
	"regexp"
	"strings"
)

var reHref = regexp.MustCompile(`(?i)href=["']([^"']+)["']`)

var skippedSchemes = []string{"javascript:", "mailto:", "tel:"}

// NormalizeURL resolves link against base. It reports false for empty,
// script, mail, phone and pure-fragment links.
func NormalizeURL(base, link string) (string, bool) {
	link = strings.TrimSpace(link)
	if link == "" || strings.HasPrefix(link, "#") {
		return "", false
	}
	lower := strings.ToLower(link)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	if base == "" {
		return ref.String(), true
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(ref).String(), true
}

// CanonicalizeURL rebuilds u with an empty path set to "/" and, when
// dropFragment is set, the fragment removed. The query is preserved.
func CanonicalizeURL(u string, dropFragment bool) string {
	p, err := url.Parse(u)
	if err != nil {
		if dropFragment {
			u, _, _ = strings.Cut(u, "#")
		}
		return u
	}
	if dropFragment {
		p.Fragment = ""
		p.RawFragment = ""
	}
	if p.Opaque == "" && p.Path == "" {
		p.Path = "/"
		p.RawPath = ""
	}
	return p.String()
}

// IsHTTPURL reports whether u is an absolute http or https URL.
func IsHTTPURL(u string) bool {
	p, err := url.Parse(u)
	if err != nil {
		return false
	}
	return (p.Scheme == "http" || p.Scheme == "https") && p.Host != ""
}

// SameDomain reports whether a and b share a host (including port).
func SameDomain(a, b string) bool {
	pa, err := url.Parse(a)
	if err != nil {
		return false
	}
	pb, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(pa.Host, pb.Host)
}

// DedupePreserveOrder drops repeated items, keeping the first of each.
func DedupePreserveOrder(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// ExtractLinks pulls href targets out of doc with a tolerant pattern match.
// With a base, links are resolved against it and, unless allowExternal is
// set, links to other hosts are dropped. Without a base only absolute http(s)
// links are kept. Results are canonical, fragment-free and unique.
func ExtractLinks(doc, base string, allowExternal bool) []string {
	var links []string
	for _, m := range reHref.FindAllStringSubmatch(doc, -1) {
		href := m[1]
		var u string
		if base != "" {
			resolved, ok := NormalizeURL(base, href)
			if !ok {
				continue
			}
			u = resolved
		} else {
			if !IsHTTPURL(href) {
				continue
			}
			u = href
		}
		if base != "" && !allowExternal && !SameDomain(base, u) {
			continue
		}
		links = append(links, CanonicalizeURL(u, true))
	}
	return DedupePreserveOrder(links)
}

// FilterLinks keeps links containing any include substring (all links when
// include is empty) and none of the exclude substrings, case-insensitively.
// A positive limit stops the scan once that many links are kept.
func FilterLinks(links, include, exclude []string, limit int) []string {
	inc := lowerAll(include)
	exc := lowerAll(exclude)
	out := []string{}
	for _, link := range links {
		l := strings.ToLower(link)
		if len(inc) > 0 && !containsAny(l, inc) {
			continue
		}
		if containsAny(l, exc) {
			continue
		}
		out = append(out, link)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
