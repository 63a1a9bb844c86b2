// Package geocode talks to a Nominatim server for reverse (coordinates to
// address) and forward (free text to coordinates) geocoding.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kindtohomeless/outreach/common_tools"
)

// DefaultBaseURL is the public OpenStreetMap Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrNoMatch is returned when the server has no result for the input.
var ErrNoMatch = errors.New("geocode: no match")

// Place is a reverse-geocoding result.
type Place struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Match is a forward-geocoding candidate.
type Match struct {
	DisplayName string  `json:"display_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type Client struct {
	http    *common_tools.Client
	baseURL string
}

func New(httpClient *common_tools.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = common_tools.NewClient()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

type reverseResponse struct {
	DisplayName string                 `json:"display_name"`
	Address     map[string]interface{} `json:"address"`
	Error       string                 `json:"error"`
}

// Reverse resolves coordinates to a display address.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	params := url.Values{
		"format":         {"jsonv2"},
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"addressdetails": {"1"},
	}
	var resp reverseResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/reverse", params, &resp); err != nil {
		return Place{}, fmt.Errorf("reverse geocoding %f,%f: %w", lat, lon, err)
	}
	if resp.Error != "" || resp.DisplayName == "" {
		return Place{}, ErrNoMatch
	}
	place := Place{DisplayName: resp.DisplayName, Address: map[string]string{}}
	for k, v := range resp.Address {
		if s, ok := v.(string); ok {
			place.Address[k] = s
		}
	}
	return place, nil
}

type searchItem struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search returns up to limit candidates for a free-text query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("geocode query cannot be empty")
	}
	if limit <= 0 {
		limit = 1
	}
	params := url.Values{
		"format": {"jsonv2"},
		"q":      {query},
		"limit":  {strconv.Itoa(limit)},
	}
	var items []searchItem
	if err := c.http.GetJSON(ctx, c.baseURL+"/search", params, &items); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", query, err)
	}
	matches := make([]Match, 0, len(items))
	for _, it := range items {
		lat, err1 := strconv.ParseFloat(it.Lat, 64)
		lon, err2 := strconv.ParseFloat(it.Lon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		matches = append(matches, Match{DisplayName: it.DisplayName, Latitude: lat, Longitude: lon})
	}
	return matches, nil
}

// First returns the best candidate for query, or ErrNoMatch.
func (c *Client) First(ctx context.Context, query string) (Match, error) {
	matches, err := c.Search(ctx, query, 1)
	if err != nil {
		return Match{}, err
	}
	if len(matches) == 0 {
		return Match{}, ErrNoMatch
	}
	return matches[0], nil
}
