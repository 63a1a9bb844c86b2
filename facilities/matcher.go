package facilities

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kindtohomeless/outreach/models"
)

// Matcher maps a free-text request ("somewhere to wash my clothes") to
// facility categories using a chat model.
type Matcher struct {
	model  models.ChatModel
	logger *slog.Logger
}

func NewMatcher(model models.ChatModel, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{model: model, logger: logger}
}

func matcherPrompt() string {
	return "You map requests for help to facility categories. " +
		"The categories are: " + strings.Join(CategoryNames(), ", ") + ". " +
		"Reply with the matching category names separated by commas and nothing else. " +
		"If no category applies, reply with none."
}

// MatchError is a chat backend failure while matching a natural query.
type MatchError struct {
	Err error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("matching categories: %v", e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }

// Match returns the categories the model picked, in the order it gave them.
// An answer naming no known category yields an empty slice, not an error.
func (m *Matcher) Match(ctx context.Context, query string) ([]string, error) {
	resp, err := m.model.Chat(ctx, models.ChatRequest{
		Messages: []models.Message{
			models.SystemMessage(matcherPrompt()),
			models.UserMessage(query),
		},
		MaxTokens: 64,
	})
	if err != nil {
		return nil, &MatchError{Err: err}
	}
	names := ParseCategories(resp.Content)
	m.logger.Debug("matched categories", "query", query, "reply", resp.Content, "categories", names)
	return names, nil
}

// ParseCategories reads a comma-separated model reply and keeps the known
// categories, tolerating case, plurals, spaces and hyphens.
func ParseCategories(reply string) []string {
	fields := strings.FieldsFunc(reply, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	out := []string{}
	seen := map[string]bool{}
	for _, f := range fields {
		name, ok := normalizeCategory(f)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func normalizeCategory(token string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.Trim(t, "\"'`.*-• ")
	t = strings.NewReplacer("-", "_", " ", "_").Replace(t)
	for strings.Contains(t, "__") {
		t = strings.ReplaceAll(t, "__", "_")
	}
	if t == "" {
		return "", false
	}
	for _, candidate := range []string{t, singularWords(t), t + "s"} {
		if _, ok := LookupCategory(candidate); ok {
			return candidate, true
		}
	}
	return "", false
}

func singularWords(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		switch {
		case strings.HasSuffix(w, "ies") && len(w) > 3:
			words[i] = w[:len(w)-3] + "y"
		case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w) > 1:
			words[i] = w[:len(w)-1]
		}
	}
	return strings.Join(words, "_")
}
