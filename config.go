package outreach

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSystemPrompt is the scraping agent's instruction.
const DefaultSystemPrompt = "You are a helpful agent. When needed, call tools. Keep outputs concise."

// DefaultMaxRounds caps model round-trips per run.
const DefaultMaxRounds = 4

// AgentConfig holds the tunables of an Agent.
type AgentConfig struct {
	MaxRounds    int
	SystemPrompt string
	MaxTokens    int
	ToolChoice   string
	Approver     Approver
	Observer     Observer
	Logger       *slog.Logger
}

// NewAgentConfig creates an agent configuration with default values
func NewAgentConfig() *AgentConfig {
	return &AgentConfig{
		MaxRounds:    DefaultMaxRounds,
		SystemPrompt: DefaultSystemPrompt,
		MaxTokens:    512,
		ToolChoice:   "auto",
		Approver:     ApproveAll,
		Observer:     nopObserver{},
		Logger:       slog.Default(),
	}
}

// WithMaxRounds sets the round cap; values below 1 are ignored
func (c *AgentConfig) WithMaxRounds(n int) *AgentConfig {
	if n > 0 {
		c.MaxRounds = n
	}
	return c
}

func (c *AgentConfig) WithSystemPrompt(prompt string) *AgentConfig {
	c.SystemPrompt = prompt
	return c
}

func (c *AgentConfig) WithMaxTokens(n int) *AgentConfig {
	c.MaxTokens = n
	return c
}

// WithApprover sets the tool approver; nil restores ApproveAll
func (c *AgentConfig) WithApprover(fn Approver) *AgentConfig {
	if fn == nil {
		fn = ApproveAll
	}
	c.Approver = fn
	return c
}

// WithObserver sets the run observer; nil disables notifications
func (c *AgentConfig) WithObserver(o Observer) *AgentConfig {
	if o == nil {
		o = nopObserver{}
	}
	c.Observer = o
	return c
}

func (c *AgentConfig) WithLogger(l *slog.Logger) *AgentConfig {
	if l != nil {
		c.Logger = l
	}
	return c
}

// Settings is the service configuration read from the environment.
type Settings struct {
	AppName string
	Debug   bool
	Addr    string

	ChatBackend string // openai, ollama or gemini
	ChatURL     string
	ChatModel   string
	ChatAPIKey  string

	OverpassURL  string
	NominatimURL string
	SearchURL    string
	UserAgent    string

	TraceStore string // none, sqlite or postgres
	TraceDSN   string

	EventsCron   string
	EventsQuery  string
	EventsBudget time.Duration
}

// LoadSettings reads .env files (when present) and then the environment.
// Variables already set in the environment win over the files.
func LoadSettings(files ...string) (*Settings, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	s := &Settings{
		AppName:      getenv("APP_NAME", "Kind-To-Homeless API"),
		Addr:         getenv("ADDR", ":7544"),
		ChatBackend:  strings.ToLower(getenv("CHAT_BACKEND", "ollama")),
		ChatURL:      getenv("CHAT_URL", ""),
		ChatModel:    getenv("CHAT_MODEL", ""),
		ChatAPIKey:   getenv("CHAT_API_KEY", ""),
		OverpassURL:  getenv("OVERPASS_URL", ""),
		NominatimURL: getenv("NOMINATIM_URL", ""),
		SearchURL:    getenv("SEARCH_URL", ""),
		UserAgent:    getenv("USER_AGENT", ""),
		TraceStore:   strings.ToLower(getenv("TRACE_STORE", "none")),
		TraceDSN:     getenv("TRACE_DSN", ""),
		EventsCron:   getenv("EVENTS_CRON", "@every 6h"),
		EventsQuery:  getenv("EVENTS_QUERY", ""),
	}

	var err error
	if s.Debug, err = parseBool("DEBUG", false); err != nil {
		return nil, err
	}
	budget := getenv("EVENTS_BUDGET", "90s")
	if s.EventsBudget, err = time.ParseDuration(budget); err != nil {
		return nil, fmt.Errorf("invalid EVENTS_BUDGET %q: %w", budget, err)
	}

	switch s.ChatBackend {
	case "openai", "ollama", "gemini":
	default:
		return nil, fmt.Errorf("unsupported CHAT_BACKEND %q", s.ChatBackend)
	}
	switch s.TraceStore {
	case "none", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported TRACE_STORE %q", s.TraceStore)
	}
	return s, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
