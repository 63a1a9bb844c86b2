package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kindtohomeless/outreach/common_tools"
	"github.com/kindtohomeless/outreach/geocode"
	"github.com/kindtohomeless/outreach/models/modeltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageServer serves /meal, /news and /closed.
func pageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		switch r.URL.Path {
		case "/meal":
			fmt.Fprint(w, "<html><body><h1>Community Dinner</h1><p>Free hot meal every Friday.</p></body></html>")
		case "/news":
			fmt.Fprint(w, "<html><body><p>City council minutes.</p></body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient() *common_tools.Client {
	return common_tools.NewClient(common_tools.WithRetries(0))
}

type stubSearcher struct {
	results []common_tools.SearchResult
	err     error
}

func (s stubSearcher) Search(ctx context.Context, query string, limit int) ([]common_tools.SearchResult, error) {
	return s.results, s.err
}

func TestFindFirstReturnsFirstEvent(t *testing.T) {
	srv := pageServer(t, nil)
	model := modeltest.NewScriptedModel(
		modeltest.Text(`{"valid": false, "reasoning": "no event"}`),
		modeltest.Text(validVerdict),
	)
	extractor := newTestExtractor(model, &fakeGeocoder{match: geocode.Match{Latitude: 1, Longitude: 2}})
	f := NewFinder(testClient(), nil, extractor, nil)

	candidates := []string{srv.URL + "/closed", srv.URL + "/news", srv.URL + "/meal", srv.URL + "/never"}
	ev, found := f.FindFirst(context.Background(), candidates, time.Minute)
	require.True(t, found)
	assert.Equal(t, "Saturday Supper", ev.Name)
	assert.Equal(t, srv.URL+"/meal", ev.SourceURL)
	assert.Equal(t, 2, model.CallCount())
}

func TestFindFirstFallsBack(t *testing.T) {
	srv := pageServer(t, nil)
	model := modeltest.NewScriptedModel(modeltest.Text(`{"valid": false}`))
	model.Repeat = true
	f := NewFinder(testClient(), nil, newTestExtractor(model, &fakeGeocoder{}), nil)

	ev, found := f.FindFirst(context.Background(), []string{srv.URL + "/news", srv.URL + "/meal"}, time.Minute)
	assert.False(t, found)
	assert.Equal(t, DefaultEvent(), ev)
}

func TestFindFirstStopsWhenBudgetSpent(t *testing.T) {
	var hits int32
	srv := pageServer(t, &hits)
	model := modeltest.NewScriptedModel(modeltest.Text(`{"valid": false}`))
	model.Repeat = true
	f := NewFinder(testClient(), nil, newTestExtractor(model, &fakeGeocoder{}), nil)

	// Each clock read advances a minute, so only the first candidate fits.
	var ticks int64
	f.now = func() time.Time {
		n := atomic.AddInt64(&ticks, 1)
		return time.Unix(0, 0).Add(time.Duration(n-1) * time.Minute)
	}

	ev, found := f.FindFirst(context.Background(), []string{srv.URL + "/news", srv.URL + "/meal", srv.URL + "/news"}, 90*time.Second)
	assert.False(t, found)
	assert.Equal(t, DefaultEvent().Name, ev.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDiscoverKeepsFoodPagesInOrder(t *testing.T) {
	srv := pageServer(t, nil)
	search := stubSearcher{results: []common_tools.SearchResult{
		{URL: srv.URL + "/news", Title: "News"},
		{URL: srv.URL + "/meal", Title: "Dinner"},
		{URL: srv.URL + "/closed", Title: "Gone"},
	}}
	f := NewFinder(testClient(), search, nil, nil)

	urls, err := f.Discover(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/meal"}, urls)
}

func TestDiscoverSearchError(t *testing.T) {
	f := NewFinder(testClient(), stubSearcher{err: errors.New("search blocked")}, nil, nil)
	_, err := f.Discover(context.Background(), "meals", 5)
	require.Error(t, err)
}

func TestMentionsAny(t *testing.T) {
	assert.True(t, mentionsAny("Free FOOD Friday", relevanceTerms))
	assert.False(t, mentionsAny(strings.Repeat("library hours ", 3), relevanceTerms))
}
