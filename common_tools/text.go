package common_tools

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultTermContext is how many bytes of text surround a term hit.
const DefaultTermContext = 80

var (
	reScript    = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	reStyle     = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	reComment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	reOpenBlock = regexp.MustCompile(`(?i)<(script|style)\b`)
	reTag       = regexp.MustCompile(`<[^>]+>`)
	reSpaces    = regexp.MustCompile(`\s+`)
	reTitle     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title\s*>`)

	closeBlock = map[string]*regexp.Regexp{
		"script": regexp.MustCompile(`(?i)</script\s*>`),
		"style":  regexp.MustCompile(`(?i)</style\s*>`),
	}

	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	rePhone = regexp.MustCompile(`(?:\+1\s*)?(?:\(\d{3}\)|\d{3})[.\-\s]?\d{3}[.\-\s]?\d{4}`)
	reHours = regexp.MustCompile(`(Mon|Tue|Wed|Thu|Fri|Sat|Sun)[^\n]{0,30}(\d{1,2}(:\d{2})?\s?(am|pm|AM|PM)?\s?[-–]\s?\d{1,2}(:\d{2})?\s?(am|pm|AM|PM)?)`)
)

// HTMLToText strips script and style blocks and all tags, decodes entities
// and collapses whitespace. The result never contains angle brackets.
func HTMLToText(doc string) string {
	doc = reComment.ReplaceAllString(doc, " ")
	doc = reScript.ReplaceAllString(doc, " ")
	doc = reStyle.ReplaceAllString(doc, " ")
	doc = cutUnclosedBlock(doc)
	text := reTag.ReplaceAllString(doc, " ")
	text = html.UnescapeString(text)
	text = strings.NewReplacer("<", " ", ">", " ").Replace(text)
	return strings.TrimSpace(reSpaces.ReplaceAllString(text, " "))
}

// cutUnclosedBlock drops everything from the first script or style opening
// tag that has no matching closing tag after it.
func cutUnclosedBlock(doc string) string {
	for _, loc := range reOpenBlock.FindAllStringSubmatchIndex(doc, -1) {
		name := strings.ToLower(doc[loc[2]:loc[3]])
		if !closeBlock[name].MatchString(doc[loc[1]:]) {
			return doc[:loc[0]]
		}
	}
	return doc
}

// ExtractTitle returns the trimmed contents of the first <title>, or "".
func ExtractTitle(doc string) string {
	m := reTitle.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	title := html.UnescapeString(reTag.ReplaceAllString(m[1], " "))
	return strings.TrimSpace(reSpaces.ReplaceAllString(title, " "))
}

// ExtractEmails returns the unique email-like tokens in text, sorted.
func ExtractEmails(text string) []string {
	return sortedUnique(reEmail.FindAllString(text, -1))
}

// ExtractPhones returns the unique North-American phone numbers in text,
// sorted.
func ExtractPhones(text string) []string {
	return sortedUnique(rePhone.FindAllString(text, -1))
}

// ExtractHours returns the unique day-prefixed time ranges in text, sorted.
func ExtractHours(text string) []string {
	return sortedUnique(reHours.FindAllString(text, -1))
}

// Contacts groups everything ExtractContacts finds on a page.
type Contacts struct {
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
	Hours  []string `json:"hours"`
}

func ExtractContacts(text string) Contacts {
	return Contacts{
		Emails: ExtractEmails(text),
		Phones: ExtractPhones(text),
		Hours:  ExtractHours(text),
	}
}

// TermHit is the first occurrence of a search term with its surroundings.
type TermHit struct {
	Term    string `json:"term"`
	Snippet string `json:"snippet"`
}

// FindTermsInText reports the first case-insensitive occurrence of each term
// with up to context bytes on either side. Terms that do not occur are
// omitted; blank terms are skipped.
func FindTermsInText(text string, terms []string, context int) []TermHit {
	if context < 0 {
		context = 0
	}
	hits := []TermHit{}
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		loc := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term)).FindStringIndex(text)
		if loc == nil {
			continue
		}
		start := loc[0] - context
		if start < 0 {
			start = 0
		}
		end := loc[1] + context
		if end > len(text) {
			end = len(text)
		}
		// Keep the window on rune boundaries.
		for start < loc[0] && !utf8.RuneStart(text[start]) {
			start++
		}
		for end > loc[1] && end < len(text) && !utf8.RuneStart(text[end]) {
			end--
		}
		hits = append(hits, TermHit{Term: term, Snippet: strings.TrimSpace(text[start:end])})
	}
	return hits
}

func sortedUnique(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := []string{}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
