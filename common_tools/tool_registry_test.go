package common_tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	query string
	limit int
}

func (s *stubSearcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	s.query, s.limit = query, limit
	return []SearchResult{{URL: "https://a.org", Title: "A"}}, nil
}

func TestDefaultTools(t *testing.T) {
	tools := DefaultTools(NewClient(), &stubSearcher{})
	if len(tools) != 9 {
		t.Errorf("expected 9 default tools, got %d", len(tools))
	}

	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Declaration.Name] = true
		if tool.Handler == nil {
			t.Errorf("%s: Handler should not be nil", tool.Declaration.Name)
		}
		if tool.Declaration.Description == "" {
			t.Errorf("%s: description should not be empty", tool.Declaration.Name)
		}
		if tool.Declaration.Parameters.Type != "object" {
			t.Errorf("%s: expected object type, got %q", tool.Declaration.Name, tool.Declaration.Parameters.Type)
		}
	}
	expected := []string{"get_html", "html_to_text", "extract_links", "filter_links", "find_terms_in_text",
		"extract_contacts", "crawl_once", "wp_search_pages", "web_search"}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("expected %s tool", name)
		}
	}
}

func TestDefaultToolsWithoutSearcher(t *testing.T) {
	r, err := DefaultRegistry(NewClient(), nil)
	require.NoError(t, err)
	assert.Len(t, r.Declarations(), 8)
	assert.False(t, r.Has("web_search"))
}

func TestExtractLinksToolDefaultsToExternal(t *testing.T) {
	r, err := DefaultRegistry(NewClient(), nil)
	require.NoError(t, err)

	out, err := r.Dispatch(context.Background(), "extract_links", map[string]interface{}{
		"html": linksPage,
		"base": "https://a.org/dir/index.html",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "https://other.org/x")

	out, err = r.Dispatch(context.Background(), "extract_links", map[string]interface{}{
		"html": linksPage,
		"base": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://other.org/x"}, out)
}

func TestFindTermsToolDefaultContext(t *testing.T) {
	r, err := DefaultRegistry(NewClient(), nil)
	require.NoError(t, err)

	text := strings.Repeat("x", 200) + "shelter" + strings.Repeat("y", 200)
	out, err := r.Dispatch(context.Background(), "find_terms_in_text", map[string]interface{}{
		"text":  text,
		"terms": []interface{}{"shelter"},
	})
	require.NoError(t, err)
	hits := out.([]TermHit)
	require.Len(t, hits, 1)
	assert.Len(t, hits[0].Snippet, len("shelter")+2*DefaultTermContext)
}

func TestGetHTMLToolTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>" + strings.Repeat("a", 1000) + "</p>"))
	}))
	defer srv.Close()

	r, err := DefaultRegistry(newTestClient(), nil)
	require.NoError(t, err)

	out, err := r.Dispatch(context.Background(), "get_html", map[string]interface{}{"url": srv.URL, "max_chars": 100.0})
	require.NoError(t, err)
	s := out.(string)
	assert.LessOrEqual(t, len(s), 120)
	assert.Contains(t, s, "truncated")
}

func TestWebSearchToolUsesSearcher(t *testing.T) {
	s := &stubSearcher{}
	r, err := DefaultRegistry(NewClient(), s)
	require.NoError(t, err)

	out, err := r.Dispatch(context.Background(), "web_search", map[string]interface{}{"query": "laundry"})
	require.NoError(t, err)
	assert.Equal(t, []SearchResult{{URL: "https://a.org", Title: "A"}}, out)
	assert.Equal(t, "laundry", s.query)
	assert.Equal(t, 10, s.limit)
}
