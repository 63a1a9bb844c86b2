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

const pantryPage = `<html><head><title>Eastside Food Pantry</title></head><body>
<script>track()</script>
<h1>Food Pantry</h1>
<p>Free groceries every week. Open Tue 10am-2pm</p>
<p>Questions? pantry@eastside.org or (555) 010-2030</p>
<a href="/volunteer">Volunteer</a>
<a href="https://maps.example.com/pantry">Map</a>
</body></html>`

func TestCrawlOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(pantryPage))
	}))
	defer srv.Close()

	res, err := newTestClient().CrawlOnce(context.Background(), CrawlOptions{
		URL:   srv.URL + "/pantry",
		Terms: []string{"groceries", "shelter"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Eastside Food Pantry", res.Title)
	assert.NotContains(t, res.Text, "track()")
	assert.Equal(t, []string{srv.URL + "/volunteer"}, res.Links)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "groceries", res.Hits[0].Term)
	assert.Equal(t, []string{"pantry@eastside.org"}, res.Emails)
	assert.Equal(t, []string{"(555) 010-2030"}, res.Phones)
	assert.Equal(t, []string{"Tue 10am-2pm"}, res.Hours)
}

func TestCrawlOnceExternalLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pantryPage))
	}))
	defer srv.Close()

	res, err := newTestClient().CrawlOnce(context.Background(), CrawlOptions{URL: srv.URL, AllowExternalLinks: true})
	require.NoError(t, err)
	assert.Contains(t, res.Links, "https://maps.example.com/pantry")
}

func TestCrawlOnceTruncatesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>" + strings.Repeat("meal ", 20000) + "</p>"))
	}))
	defer srv.Close()

	res, err := newTestClient().CrawlOnce(context.Background(), CrawlOptions{URL: srv.URL})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Text), crawlTextMax)
}

func TestCrawlOnceUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient().CrawlOnce(context.Background(), CrawlOptions{URL: srv.URL})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestFindTermsInURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pantryPage))
	}))
	defer srv.Close()

	res, err := newTestClient().FindTermsInURL(context.Background(), srv.URL, []string{"PANTRY"}, 10)
	require.NoError(t, err)
	assert.Equal(t, "Eastside Food Pantry", res.Title)
	require.Len(t, res.Hits, 1)
	assert.Contains(t, res.Hits[0].Snippet, "Pantry")
}

func TestWPSearchPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/search", r.URL.Path)
		assert.Equal(t, "meals", r.URL.Query().Get("search"))
		assert.Equal(t, "page", r.URL.Query().Get("subtype"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":7,"title":"Community Meals","url":"https://church.example/meals","type":"post"}]`))
	}))
	defer srv.Close()

	res := newTestClient().WPSearchPages(context.Background(), srv.URL+"/", "meals", 5)
	assert.True(t, res.OK)
	assert.Equal(t, []WPPage{{Title: "Community Meals", URL: "https://church.example/meals"}}, res.Results)
}

func TestWPSearchPagesFromSubpath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"title":"Meals","url":"https://x.org/meals#top"},{"title":"no url","url":""},{"title":"Home","url":"https://x.org"}]`))
	}))
	defer srv.Close()

	res := newTestClient().WPSearchPages(context.Background(), srv.URL+"/about/team/", "meals", 10)
	assert.True(t, res.OK)
	assert.Equal(t, []WPPage{
		{Title: "Meals", URL: "https://x.org/meals"},
		{Title: "Home", URL: "https://x.org/"},
	}, res.Results)
}

func TestWPSearchPagesInvalidBase(t *testing.T) {
	res := newTestClient().WPSearchPages(context.Background(), "", "meals", 10)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Error)
	assert.NotNil(t, res.Results)
}

func TestWPSearchPagesReportsFailuresInBand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") == "broken" {
			w.Write([]byte("<html>not wordpress</html>"))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient()
	res := c.WPSearchPages(context.Background(), srv.URL, "meals", 0)
	assert.False(t, res.OK)
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.NotNil(t, res.Results)

	res = c.WPSearchPages(context.Background(), srv.URL, "broken", 0)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.Results)
}
