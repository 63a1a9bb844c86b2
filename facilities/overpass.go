package facilities

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kindtohomeless/outreach/models"
)

// DefaultOverpassURL is the main public Overpass API interpreter.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

const overpassTimeout = 30 * time.Second

// auxKeys are the keys of named elements fetched only to name nearby
// facilities.
var auxKeys = []string{"building", "shop", "amenity"}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *point            `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// coords returns the node position or the centroid of a way or relation.
func (e element) coords() (float64, float64, bool) {
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}

type overpassResponse struct {
	Elements []element `json:"elements"`
}

// BuildQuery returns one Overpass QL query for every tag pair of cats plus
// the named buildings, shops and amenities around the point.
func BuildQuery(cats []Category, lat, lon, radiusMeters float64) string {
	around := fmt.Sprintf("(around:%.0f,%.6f,%.6f)", radiusMeters, lat, lon)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	seen := map[Tag]bool{}
	for _, c := range cats {
		for _, t := range c.Tags {
			if seen[t] {
				continue
			}
			seen[t] = true
			fmt.Fprintf(&b, "  nwr[%q=%q]%s;\n", t.Key, t.Value, around)
		}
	}
	for _, k := range auxKeys {
		fmt.Fprintf(&b, "  nwr[\"name\"][%q]%s;\n", k, around)
	}
	b.WriteString(");\nout center tags;\n")
	return b.String()
}

func (r *Resolver) fetchElements(ctx context.Context, query string) ([]element, error) {
	resp, err := r.http.PostForm(ctx, r.overpassURL, url.Values{"data": {query}}, overpassTimeout)
	if err != nil {
		return nil, fmt.Errorf("overpass query: %w", err)
	}
	var out overpassResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		body := string(resp.Body)
		if len(body) > 300 {
			body = body[:300]
		}
		return nil, &models.MalformedResponseError{Source: "overpass", Body: body, Err: err}
	}
	return out.Elements, nil
}
