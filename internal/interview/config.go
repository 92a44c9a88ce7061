package interview

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSilenceWindow is the quiet period after which an in-progress answer
// is considered finished. Conservative enough to survive thinking pauses.
const DefaultSilenceWindow = 3 * time.Second

// Question is one configured interview prompt. Immutable after load.
type Question struct {
	ID               string   `yaml:"id" json:"id"`
	Question         string   `yaml:"question" json:"question"`
	MaxResponseTime  int      `yaml:"max_response_time" json:"maxResponseTime"` // seconds
	RequiredElements []string `yaml:"required_elements,omitempty" json:"requiredElements,omitempty"`
	ScoringWeight    float64  `yaml:"scoring_weight,omitempty" json:"scoringWeight,omitempty"`
}

// Config is the static screening configuration.
type Config struct {
	// DurationMinutes is the hard ceiling for the whole interview.
	DurationMinutes int `yaml:"duration" json:"duration"`
	// SilenceWindowMS overrides DefaultSilenceWindow when > 0.
	SilenceWindowMS int        `yaml:"silence_window_ms,omitempty" json:"silenceWindowMs,omitempty"`
	Questions       []Question `yaml:"questions" json:"questions"`
}

// Ceiling returns the total interview duration limit.
func (c Config) Ceiling() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// SilenceWindow returns the configured quiet window.
func (c Config) SilenceWindow() time.Duration {
	if c.SilenceWindowMS > 0 {
		return time.Duration(c.SilenceWindowMS) * time.Millisecond
	}
	return DefaultSilenceWindow
}

// TotalQuestions returns the number of configured questions.
func (c Config) TotalQuestions() int { return len(c.Questions) }

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.DurationMinutes <= 0 {
		return fmt.Errorf("duration must be > 0 minutes")
	}
	if len(c.Questions) == 0 {
		return fmt.Errorf("at least one question is required")
	}
	seen := make(map[string]struct{}, len(c.Questions))
	for i, q := range c.Questions {
		if q.ID == "" {
			return fmt.Errorf("question %d: id is required", i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("question %d: duplicate id %q", i, q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.Question == "" {
			return fmt.Errorf("question %q: prompt text is required", q.ID)
		}
		if q.MaxResponseTime <= 0 {
			return fmt.Errorf("question %q: max_response_time must be > 0 seconds", q.ID)
		}
	}
	return nil
}

// LoadConfig reads a YAML screening configuration from disk.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read question config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse question config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid question config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfig returns the built-in SDR screening set: six questions under a
// ten minute ceiling.
func DefaultConfig() Config {
	return Config{
		DurationMinutes: 10,
		Questions: []Question{
			{
				ID:              "intro",
				Question:        "Tell me about yourself and why you're interested in a sales development role.",
				MaxResponseTime: 90,
				ScoringWeight:   1,
			},
			{
				ID:               "cold_calling",
				Question:         "How would you approach making a cold call to a potential prospect?",
				MaxResponseTime:  120,
				RequiredElements: []string{"research", "value proposition", "objection handling"},
				ScoringWeight:    2,
			},
			{
				ID:               "objection_handling",
				Question:         "A prospect says 'We're not interested right now.' How do you respond?",
				MaxResponseTime:  90,
				RequiredElements: []string{"acknowledge", "probe", "provide value"},
				ScoringWeight:    2,
			},
			{
				ID:               "qualification",
				Question:         "What questions would you ask to qualify a lead during your first conversation?",
				MaxResponseTime:  120,
				RequiredElements: []string{"budget", "authority", "need", "timing"},
				ScoringWeight:    2,
			},
			{
				ID:              "motivation",
				Question:        "What motivates you in a sales role, and how do you handle rejection?",
				MaxResponseTime: 90,
				ScoringWeight:   1,
			},
			{
				ID:               "scenario",
				Question:         "You have 50 leads to contact today, but only have time for 30 calls. How do you prioritize?",
				MaxResponseTime:  120,
				RequiredElements: []string{"prioritization criteria", "efficiency", "data-driven approach"},
				ScoringWeight:    2,
			},
		},
	}
}
