package config

import "time"

const (
	// Request cooldown between AI submissions
	Cooldown = 5 * time.Second

	// Per-session message limit before an automatic reset
	MaxMessages = 100

	// Sessions kept per user; oldest are evicted beyond this
	MaxSessions = 10

	// AI request timeout
	RequestTimeout = 120 * time.Second

	// URL ingestion timeout and size cap
	IngestTimeout     = 30 * time.Second
	MaxIngestBodySize = 20 << 20

	// Default AI model
	DefaultModel = "gemini-3-pro-preview"

	// Default generation temperatures for the two flows
	DefaultTemperature = 0.3
	SolverTemperature  = 0.2

	// Thinking budgets (tokens of internal deliberation)
	SummarizerThinkingBudget = 8192
	SolverThinkingBudget     = 16384

	// Rate limit (messages per minute per chat)
	RateLimitPerMinute = 6

	// Sessions per page in /sessions
	SessionsPerPage = 5
)

// TemperatureOptions selectable in /settings.
var TemperatureOptions = []float64{0.1, 0.2, 0.3, 0.7, 1.0}

// ModelPricing holds per-1M-token USD prices used for usage accounting.
type ModelPricing struct {
	Prompt     float64
	Completion float64
}

// Pricing by model identifier. Unknown models are accounted at zero cost.
var Pricing = map[string]ModelPricing{
	"gemini-3-pro-preview": {Prompt: 2.00, Completion: 12.00},
	"gemini-2.5-pro":       {Prompt: 1.25, Completion: 10.00},
	"gemini-2.5-flash":     {Prompt: 0.30, Completion: 2.50},
}
