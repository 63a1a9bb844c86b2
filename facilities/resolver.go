// Package facilities finds shelters, food banks, toilets and other services
// near a point using OpenStreetMap data.
package facilities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kindtohomeless/outreach/common_tools"
	"github.com/kindtohomeless/outreach/geocode"
	"github.com/kindtohomeless/outreach/models"
	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the per-category result cap when a query sets none.
const DefaultLimit = 10

const defaultGeocodeConcurrency = 8

// Facility is one resolved point of interest.
type Facility struct {
	OSMType     string  `json:"osm_type"`
	OSMID       int64   `json:"osm_id"`
	Name        string  `json:"name"`
	FeatureType string  `json:"feature_type"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	// Distance from the query point in miles, rounded to hundredths.
	Distance float64 `json:"distance"`
	Address  string  `json:"address"`
}

// Query describes a nearby search. Feature is a category name or "all";
// a non-empty NaturalQuery overrides it.
type Query struct {
	Latitude     float64
	Longitude    float64
	RadiusMiles  float64
	Feature      string
	Limit        int
	NaturalQuery string
}

// QueryError is an invalid search parameter.
type QueryError struct {
	Field  string
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Reverser resolves coordinates to an address.
type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) (geocode.Place, error)
}

type Resolver struct {
	http        *common_tools.Client
	overpassURL string
	geocoder    Reverser
	matcher     *Matcher
	logger      *slog.Logger
	concurrency int
}

type Option func(*Resolver)

// WithMatcher enables natural-language queries.
func WithMatcher(m *Matcher) Option {
	return func(r *Resolver) { r.matcher = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithGeocodeConcurrency bounds parallel reverse-geocoding calls.
func WithGeocodeConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func NewResolver(httpClient *common_tools.Client, overpassURL string, geocoder Reverser, opts ...Option) *Resolver {
	if httpClient == nil {
		httpClient = common_tools.NewClient()
	}
	if overpassURL == "" {
		overpassURL = DefaultOverpassURL
	}
	r := &Resolver{
		http:        httpClient,
		overpassURL: overpassURL,
		geocoder:    geocoder,
		logger:      slog.Default(),
		concurrency: defaultGeocodeConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (q *Query) normalize() error {
	if q.Latitude < -90 || q.Latitude > 90 {
		return &QueryError{Field: "latitude", Reason: "must be between -90 and 90"}
	}
	if q.Longitude < -180 || q.Longitude > 180 {
		return &QueryError{Field: "longitude", Reason: "must be between -180 and 180"}
	}
	if q.RadiusMiles <= 0 {
		return &QueryError{Field: "radius", Reason: "must be greater than 0"}
	}
	if q.Limit < 0 {
		return &QueryError{Field: "limit", Reason: "must not be negative"}
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Feature == "" {
		q.Feature = FeatureAll
	}
	return nil
}

// Nearby resolves the facilities around the query point. Each category
// returns at most Limit results; the combined list is ordered by distance.
func (r *Resolver) Nearby(ctx context.Context, q Query) ([]Facility, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	if q.NaturalQuery != "" {
		if r.matcher == nil {
			return nil, &QueryError{Field: "q", Reason: "natural language search is not configured"}
		}
		names, err := r.matcher.Match(ctx, q.NaturalQuery)
		if err != nil {
			return nil, err
		}
		results := []Facility{}
		for _, name := range names {
			cat, _ := LookupCategory(name)
			found, err := r.resolve(ctx, q, []Category{cat})
			if err != nil {
				return nil, err
			}
			results = append(results, found...)
		}
		sortByDistance(results)
		return results, nil
	}

	cats, ok := selectCategories(q.Feature)
	if !ok {
		return nil, &QueryError{Field: "feature", Reason: fmt.Sprintf("unknown feature %q", q.Feature)}
	}
	return r.resolve(ctx, q, cats)
}

// resolve runs one Overpass query for cats and builds the per-category
// result lists.
func (r *Resolver) resolve(ctx context.Context, q Query, cats []Category) ([]Facility, error) {
	query := BuildQuery(cats, q.Latitude, q.Longitude, milesToMeters(q.RadiusMiles))
	elements, err := r.fetchElements(ctx, query)
	if err != nil {
		return nil, err
	}

	buckets := map[string][]candidate{}
	var aux []candidate
	for _, el := range elements {
		lat, lon, ok := el.coords()
		if !ok {
			continue
		}
		c := candidate{el: el, lat: lat, lon: lon, dist: Haversine(q.Latitude, q.Longitude, lat, lon)}
		if cat, ok := firstMatch(cats, el.Tags); ok {
			buckets[cat.Name] = append(buckets[cat.Name], c)
		} else if el.Tags["name"] != "" {
			aux = append(aux, c)
		}
	}

	results := []Facility{}
	for _, cat := range cats {
		bucket := buckets[cat.Name]
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].dist < bucket[j].dist })
		if len(bucket) > q.Limit {
			bucket = bucket[:q.Limit]
		}
		for _, c := range bucket {
			name := c.el.Tags["name"]
			if name == "" {
				name = nearestAuxName(c.lat, c.lon, aux)
			}
			if name == "" {
				name = c.el.Tags["operator"]
			}
			if name == "" {
				name = cat.Label()
			}
			results = append(results, Facility{
				OSMType:     c.el.Type,
				OSMID:       c.el.ID,
				Name:        name,
				FeatureType: cat.Name,
				Latitude:    c.lat,
				Longitude:   c.lon,
				Distance:    c.dist,
			})
		}
	}

	r.attachAddresses(ctx, results)
	if len(cats) > 1 {
		sortByDistance(results)
	}
	for i := range results {
		results[i].Distance = roundMiles(results[i].Distance)
	}
	return results, nil
}

// candidate is an element with resolved coordinates and its distance from
// the query point.
type candidate struct {
	el       element
	lat, lon float64
	dist     float64
}

func nearestAuxName(lat, lon float64, aux []candidate) string {
	best, bestDist := "", auxNameRadiusMiles
	for _, a := range aux {
		if d := Haversine(lat, lon, a.lat, a.lon); d <= bestDist {
			best, bestDist = a.el.Tags["name"], d
		}
	}
	return best
}

// attachAddresses reverse-geocodes every facility concurrently. A failed
// lookup leaves that facility's address empty.
func (r *Resolver) attachAddresses(ctx context.Context, results []Facility) {
	if r.geocoder == nil || len(results) == 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range results {
		i := i
		g.Go(func() error {
			place, err := r.geocoder.Reverse(gctx, results[i].Latitude, results[i].Longitude)
			if err != nil {
				r.logger.Debug("reverse geocoding failed", "lat", results[i].Latitude, "lon", results[i].Longitude, "error", err)
				return nil
			}
			results[i].Address = place.DisplayName
			return nil
		})
	}
	g.Wait()
}

func sortByDistance(results []Facility) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
}

// Response is the never-failing shape returned to API callers.
type Response struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	// RadiusMiles repeats Radius for clients that read the longer name.
	RadiusMiles float64    `json:"radius_miles"`
	Feature     string     `json:"feature,omitempty"`
	Query       string     `json:"q,omitempty"`
	Results     []Facility `json:"results"`
	Error       string     `json:"error,omitempty"`
	Detail      string     `json:"detail,omitempty"`
}

// Error kinds reported in Response.Error.
const (
	ErrKindInvalidQuery        = "invalid_query"
	ErrKindUpstreamUnavailable = "upstream_unavailable"
	ErrKindUpstreamStatus      = "upstream_error"
	ErrKindMalformedUpstream   = "malformed_upstream_response"
	ErrKindInternal            = "internal_error"
)

// Lookup is Nearby with failures converted into an {error, detail}
// payload.
func (r *Resolver) Lookup(ctx context.Context, q Query) Response {
	resp := Response{
		Latitude:    q.Latitude,
		Longitude:   q.Longitude,
		Radius:      q.RadiusMiles,
		RadiusMiles: q.RadiusMiles,
		Feature:     q.Feature,
		Query:       q.NaturalQuery,
		Results:     []Facility{},
	}
	results, err := r.Nearby(ctx, q)
	if err != nil {
		resp.Error = ErrorKind(err)
		resp.Detail = err.Error()
		r.logger.Warn("facility lookup failed", "error", err, "kind", resp.Error)
		return resp
	}
	resp.Results = results
	return resp
}

// ErrorKind classifies an error returned by Nearby.
func ErrorKind(err error) string {
	var (
		queryErr     *QueryError
		netErr       *common_tools.NetworkError
		httpErr      *common_tools.HTTPError
		malformedErr *models.MalformedResponseError
		matchErr     *MatchError
	)
	switch {
	case errors.As(err, &queryErr):
		return ErrKindInvalidQuery
	case errors.As(err, &matchErr):
		return ErrKindUpstreamUnavailable
	case errors.As(err, &netErr):
		return ErrKindUpstreamUnavailable
	case errors.As(err, &httpErr):
		return ErrKindUpstreamStatus
	case errors.As(err, &malformedErr):
		return ErrKindMalformedUpstream
	default:
		return ErrKindInternal
	}
}
