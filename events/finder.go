package events

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kindtohomeless/outreach/common_tools"
	"golang.org/x/sync/errgroup"
)

// DefaultBudget bounds one FindFirst pass.
const DefaultBudget = 90 * time.Second

// DefaultQuery seeds candidate discovery.
const DefaultQuery = "free community meal food pantry homeless this week"

// relevanceTerms must appear in a page for it to be worth a model call.
var relevanceTerms = []string{"food", "meal", "pantry", "soup", "breakfast", "lunch", "dinner", "groceries"}

// DefaultEvent is the known-good record served when no page yields an
// event within budget.
func DefaultEvent() Event {
	return Event{
		Name:      "Austin Street Center Community Meals",
		Date:      "Daily, breakfast and dinner",
		Summary:   "Austin Street Center serves meals and offers shelter to adults experiencing homelessness.",
		Address:   "2929 Hickory St, Dallas, TX 75226",
		Latitude:  32.7779,
		Longitude: -96.7817,
		SourceURL: "https://austinstreet.org/",
	}
}

type Finder struct {
	http        *common_tools.Client
	search      common_tools.Searcher
	extractor   *Extractor
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

func NewFinder(httpClient *common_tools.Client, search common_tools.Searcher, extractor *Extractor, logger *slog.Logger) *Finder {
	if httpClient == nil {
		httpClient = common_tools.NewClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{
		http:        httpClient,
		search:      search,
		extractor:   extractor,
		logger:      logger,
		concurrency: 4,
		now:         time.Now,
	}
}

// FindFirst visits candidates in order and returns the first event found.
// The budget is checked between candidates; once it is spent, or when no
// candidate yields an event, DefaultEvent is returned with found == false.
func (f *Finder) FindFirst(ctx context.Context, candidates []string, budget time.Duration) (ev Event, found bool) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	start := f.now()
	for i, u := range candidates {
		if f.now().Sub(start) > budget {
			f.logger.Info("event search budget spent", "checked", i, "budget", budget)
			break
		}
		if ctx.Err() != nil {
			break
		}
		doc, err := f.http.GetHTML(ctx, u)
		if err != nil {
			f.logger.Debug("skipping candidate", "url", u, "error", err)
			continue
		}
		res, err := f.extractor.Extract(ctx, common_tools.HTMLToText(doc))
		if err != nil {
			f.logger.Debug("extraction failed", "url", u, "error", err)
			continue
		}
		if res.Event == nil {
			f.logger.Debug("no event on page", "url", u, "reason", res.Reasoning)
			continue
		}
		res.Event.SourceURL = u
		return *res.Event, true
	}
	return DefaultEvent(), false
}

// Discover searches for candidate pages and keeps, in search order, those
// whose text mentions food or meals. Pages are fetched in parallel; a page
// that fails to load is dropped.
func (f *Finder) Discover(ctx context.Context, query string, limit int) ([]string, error) {
	if query == "" {
		query = DefaultQuery
	}
	results, err := f.search.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	keep := make([]bool, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, r := range results {
		i, r := i, r
		g.Go(func() error {
			doc, err := f.http.GetHTML(gctx, r.URL)
			if err != nil {
				f.logger.Debug("discover fetch failed", "url", r.URL, "error", err)
				return nil
			}
			keep[i] = mentionsAny(common_tools.HTMLToText(doc), relevanceTerms)
			return nil
		})
	}
	g.Wait()

	urls := []string{}
	for i, r := range results {
		if keep[i] {
			urls = append(urls, r.URL)
		}
	}
	return urls, nil
}

func mentionsAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
