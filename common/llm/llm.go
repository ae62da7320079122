package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Message roles accepted in Request.History.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config holds LLM client configuration.
type Config struct {
	APIKey            string        // Optional for local endpoints such as Ollama
	BaseURL           string        // OpenAI-compatible API root, e.g. http://localhost:11434/v1
	Model             string        // Model name (e.g., "mistral")
	MaxTokens         int           // Default completion budget when a request sets none
	MaxRetries        int           // Attempts after the first one, used by WithRetry
	RequestsPerSecond float64       // Client-side rate limit, used by WithRateLimit
	Timeout           time.Duration // Per-request timeout
}

// Message represents a conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	objectJSON = regexp.MustCompile(`(?s)\{.*\}`)
	arrayJSON  = regexp.MustCompile(`(?s)\[.*\]`)
)

// DecodeJSON unmarshals content into result. Local models sometimes wrap the
// JSON in prose or code fences, so the outermost object or array is tried
// when the raw content does not parse.
func DecodeJSON(content string, result any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}

	if err := json.Unmarshal([]byte(content), result); err == nil {
		return nil
	}

	candidates := make([]string, 0, 3)
	if m := fencedJSON.FindStringSubmatch(content); len(m) == 2 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if m := objectJSON.FindString(content); m != "" {
		candidates = append(candidates, m)
	}
	if m := arrayJSON.FindString(content); m != "" {
		candidates = append(candidates, m)
	}

	for _, candidate := range candidates {
		if err := json.Unmarshal([]byte(candidate), result); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrMalformedResponse, truncate(content, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
