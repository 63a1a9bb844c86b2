// Package events finds free meals and aid events on community web pages.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kindtohomeless/outreach/geocode"
	"github.com/kindtohomeless/outreach/models"
)

// maxExtractChars caps the page text sent to the model.
const maxExtractChars = 12000

// Event is the record the mobile client renders. Field names match its
// JSON contract.
type Event struct {
	Name      string  `json:"Name"`
	Date      string  `json:"Date"`
	Summary   string  `json:"Summary"`
	Address   string  `json:"Address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SourceURL string  `json:"source_url,omitempty"`
}

// Extraction is the outcome of Extract. Event is nil when the page holds no
// usable event; Reasoning says why.
type Extraction struct {
	Event     *Event `json:"event"`
	Reasoning string `json:"reasoning"`
}

// Geocoder resolves a street address to coordinates.
type Geocoder interface {
	First(ctx context.Context, query string) (geocode.Match, error)
}

type Extractor struct {
	model    models.ChatModel
	geocoder Geocoder
	logger   *slog.Logger
	now      func() time.Time
}

func NewExtractor(model models.ChatModel, geocoder Geocoder, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{model: model, geocoder: geocoder, logger: logger, now: time.Now}
}

type modelVerdict struct {
	Valid     bool   `json:"valid"`
	Reasoning string `json:"reasoning"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	Address   string `json:"address"`
	Summary   string `json:"summary"`
}

func extractionPrompt(today time.Time) string {
	return `You read community web pages and decide whether they announce a free food or aid event for people experiencing homelessness.
Today is ` + today.Format("Monday, January 2, 2006") + `.
A page is valid only if all of these hold:
- it gives an explicit date or recurring schedule
- it gives a physical street address
- the event offers food, meals, groceries, clothing, hygiene or similar aid
- the event is upcoming or recurring, not in the past
Answer with a single JSON object and nothing else:
{"valid": true or false, "reasoning": "one sentence", "name": "", "date": "", "address": "", "summary": "one sentence"}`
}

// Extract asks the model whether text describes an aid event and, if so,
// geocodes its address. Backend failures and unparseable replies are
// returned as errors; every other rejection is an Extraction with a reason.
func (e *Extractor) Extract(ctx context.Context, text string) (Extraction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Extraction{Reasoning: "page has no text"}, nil
	}
	if len(text) > maxExtractChars {
		cut := maxExtractChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	resp, err := e.model.Chat(ctx, models.ChatRequest{
		Messages: []models.Message{
			models.SystemMessage(extractionPrompt(e.now())),
			models.UserMessage(text),
		},
		MaxTokens: 512,
		JSON:      true,
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("extracting event: %w", err)
	}

	var verdict modelVerdict
	body := StripCodeFences(resp.Content)
	if err := json.Unmarshal([]byte(body), &verdict); err != nil {
		return Extraction{}, &models.MalformedResponseError{Source: "event extraction", Body: body, Err: err}
	}

	if !verdict.Valid {
		reason := verdict.Reasoning
		if reason == "" {
			reason = "page does not describe a qualifying event"
		}
		return Extraction{Reasoning: reason}, nil
	}
	if strings.TrimSpace(verdict.Address) == "" {
		return Extraction{Reasoning: "no physical address given"}, nil
	}

	match, err := e.geocoder.First(ctx, verdict.Address)
	if err != nil {
		if errors.Is(err, geocode.ErrNoMatch) {
			return Extraction{Reasoning: fmt.Sprintf("address %q could not be located", verdict.Address)}, nil
		}
		e.logger.Warn("geocoding event address failed", "address", verdict.Address, "error", err)
		return Extraction{Reasoning: fmt.Sprintf("geocoding %q failed: %v", verdict.Address, err)}, nil
	}

	return Extraction{
		Event: &Event{
			Name:      verdict.Name,
			Date:      verdict.Date,
			Summary:   verdict.Summary,
			Address:   verdict.Address,
			Latitude:  match.Latitude,
			Longitude: match.Longitude,
		},
		Reasoning: verdict.Reasoning,
	}, nil
}

// StripCodeFences removes a surrounding markdown code fence, with or
// without a language tag.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
