package common_tools

import (
	"reflect"
	"strings"
	"testing"
)

func TestHTMLToText(t *testing.T) {
	html := `<html><head><title>x</title>
		<script>var x = 1;</script>
		<STYLE type="text/css">body { color: red; }</STYLE>
	</head><body><p>Hello <b>world</b> &amp; friends</p></body></html>`

	result := HTMLToText(html)
	if !strings.Contains(result, "Hello world & friends") {
		t.Errorf("expected plain text, got %q", result)
	}
	if strings.Contains(result, "var x") {
		t.Error("script content should be stripped")
	}
	if strings.Contains(result, "color: red") {
		t.Error("style content should be stripped")
	}
	if strings.Contains(result, "  ") {
		t.Errorf("whitespace should be collapsed, got %q", result)
	}
}

func TestHTMLToTextNeverContainsAngleBrackets(t *testing.T) {
	inputs := []string{
		"<p>a &lt;b&gt; c</p>",
		"1 < 2 and 3 > 2",
		"<div><script>if (a < b) { alert(1) }</script>ok</div>",
		"<p>before<script>never closed <b>bold</b>",
		"<<>>",
		"<style>p{}</style><a href='x'>link</a>",
		"",
	}
	for _, in := range inputs {
		out := HTMLToText(in)
		if strings.ContainsAny(out, "<>") {
			t.Errorf("HTMLToText(%q) = %q contains angle brackets", in, out)
		}
		if strings.Contains(out, "alert") || strings.Contains(out, "never closed") || strings.Contains(out, "p{}") {
			t.Errorf("HTMLToText(%q) = %q kept script or style text", in, out)
		}
	}
}

func TestHTMLToTextIgnoresCommentedOutScript(t *testing.T) {
	doc := `<p>Before</p><!-- <script> legacy --><p>Shelter open 9am-5pm, call (555) 123-4567</p>`

	result := HTMLToText(doc)
	for _, want := range []string{"Before", "Shelter open 9am-5pm", "(555) 123-4567"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected %q in %q", want, result)
		}
	}
	if strings.Contains(result, "legacy") || strings.Contains(result, "!--") {
		t.Errorf("comment should be stripped, got %q", result)
	}
}

func TestHTMLToTextUnclosedBlockAfterClosedOne(t *testing.T) {
	doc := `<script>a()</script><p>kept</p><style>p{} <p>dropped</p>`

	if result := HTMLToText(doc); result != "kept" {
		t.Errorf("expected %q, got %q", "kept", result)
	}
}

func TestExtractTitle(t *testing.T) {
	if got := ExtractTitle("<head><title>\n  Food  Pantry &amp; Meals </title></head>"); got != "Food Pantry & Meals" {
		t.Errorf("unexpected title %q", got)
	}
	if got := ExtractTitle("<p>no title</p>"); got != "" {
		t.Errorf("expected empty title, got %q", got)
	}
}

func TestExtractContacts(t *testing.T) {
	text := "Call (555) 123-4567 or 555.123.4567, email info@shelter.org. Call (555) 123-4567 again.\nOpen Mon-Fri 9am-5pm"

	got := ExtractContacts(text)

	if want := []string{"info@shelter.org"}; !reflect.DeepEqual(got.Emails, want) {
		t.Errorf("emails = %v, want %v", got.Emails, want)
	}
	if want := []string{"(555) 123-4567", "555.123.4567"}; !reflect.DeepEqual(got.Phones, want) {
		t.Errorf("phones = %v, want %v", got.Phones, want)
	}
	if want := []string{"Mon-Fri 9am-5pm"}; !reflect.DeepEqual(got.Hours, want) {
		t.Errorf("hours = %v, want %v", got.Hours, want)
	}
}

func TestExtractContactsEmpty(t *testing.T) {
	got := ExtractContacts("nothing to see here")
	if got.Emails == nil || len(got.Emails) != 0 || len(got.Phones) != 0 || len(got.Hours) != 0 {
		t.Errorf("expected empty non-nil lists, got %+v", got)
	}
}

func TestFindTermsInText(t *testing.T) {
	text := "the city shelter intake hours are posted"

	hits := FindTermsInText(text, []string{"shelter"}, 5)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Snippet != "city shelter inta" {
		t.Errorf("unexpected snippet %q", hits[0].Snippet)
	}
}

func TestFindTermsInTextCaseInsensitiveAndMissing(t *testing.T) {
	text := "Free MEALS every Sunday"

	hits := FindTermsInText(text, []string{"meals", "pantry", ""}, 80)
	if len(hits) != 1 {
		t.Fatalf("expected only the present term, got %+v", hits)
	}
	if hits[0].Term != "meals" || hits[0].Snippet != text {
		t.Errorf("unexpected hit %+v", hits[0])
	}
}

func TestFindTermsInTextRuneBoundaries(t *testing.T) {
	text := "café shelter ñandú"

	hits := FindTermsInText(text, []string{"shelter"}, 2)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Snippet != "shelter" {
		t.Errorf("snippet should shrink to whole runes, got %q", hits[0].Snippet)
	}
}
