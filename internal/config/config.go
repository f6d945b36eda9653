package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration.
const DefaultPath = "prefsurvey.yaml"

// Config holds all prefsurvey configuration.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Survey   SurveyConfig   `yaml:"survey"`
	Receiver ReceiverConfig `yaml:"receiver"`
	Logging  LoggingConfig  `yaml:"logging"`
	UI       UIConfig       `yaml:"ui"`
}

// EndpointConfig configures where responses are delivered.
type EndpointConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"` // empty or "0s" means no timeout
}

// SurveyConfig configures the respondent flow.
type SurveyConfig struct {
	EmailDomain string       `yaml:"email_domain"`
	Flow        FlowConfig   `yaml:"flow"`
	DefaultForm string       `yaml:"default_form"`
	Forms       []FormConfig `yaml:"forms"`
}

// FlowConfig selects optional screens and the delivery mode.
type FlowConfig struct {
	ChooseForm bool   `yaml:"choose_form"`
	Confirm    bool   `yaml:"confirm"`
	AllowBack  bool   `yaml:"allow_back"`
	Delivery   string `yaml:"delivery"` // per_item, batch
}

// FormConfig is one survey form and the groups its pool is built from.
type FormConfig struct {
	Key    string        `yaml:"key"`
	Label  string        `yaml:"label"`
	Groups []GroupConfig `yaml:"groups"`
}

// GroupConfig is one tabular source.
type GroupConfig struct {
	Name           string        `yaml:"name"`
	Source         string        `yaml:"source"`
	Format         string        `yaml:"format,omitempty"` // xlsx, csv; detected when empty
	QuestionColumn string        `yaml:"question_column,omitempty"`
	Sample         int           `yaml:"sample"` // 0 keeps the whole group
	Models         []ModelConfig `yaml:"models"`
}

// ModelConfig names a model and, optionally, its response column.
type ModelConfig struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column,omitempty"` // defaults to "<name> Response"
}

// ReceiverConfig configures `prefsurvey serve`.
type ReceiverConfig struct {
	Addr         string            `yaml:"addr"`
	Database     string            `yaml:"database"`
	Sheets       map[string]string `yaml:"sheets"` // formType -> sheet name
	DefaultSheet string            `yaml:"default_sheet"`
	AllowOrigins string            `yaml:"allow_origins"`
	BodyLimitMB  int               `yaml:"body_limit_mb"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"` // debug, info, warn, error
	File       string          `yaml:"file"`
	DebugMode  bool            `yaml:"debug_mode"` // false disables file logging entirely
	MaxSizeMB  int             `yaml:"max_size_mb"`
	MaxBackups int             `yaml:"max_backups"`
	MaxAgeDays int             `yaml:"max_age_days"`
	Compress   bool            `yaml:"compress"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// UIConfig configures the terminal client.
type UIConfig struct {
	DarkMode bool `yaml:"dark_mode"`
}

// DefaultConfig returns the default configuration: the two forms of the
// preference study, each drawing 8 "before" and 12 "after" items.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			URL:     "YOUR_GOOGLE_APPS_SCRIPT_WEB_APP_URL_HERE",
			Timeout: "0s",
		},

		Survey: SurveyConfig{
			EmailDomain: "graas.ai",
			Flow: FlowConfig{
				ChooseForm: true,
				Confirm:    false,
				AllowBack:  false,
				Delivery:   "per_item",
			},
			DefaultForm: "entire",
			Forms: []FormConfig{
				{
					Key:   "entire",
					Label: "Entire Workflow Response Form",
					Groups: []GroupConfig{
						{
							Name:   "before",
							Source: "data/Complete_Before_Connect_Feedback_Questions.xlsx",
							Sample: 8,
							Models: []ModelConfig{
								{Name: "Claude-4.5-Haiku", Column: "Claude-4.5-Haiku Response "},
								{Name: "GPT-4o"},
							},
						},
						{
							Name:   "after",
							Source: "data/Complete_After_Data_Feedback_Questions.xlsx",
							Sample: 12,
							Models: []ModelConfig{
								{Name: "GPT-5"},
								{Name: "Claude-Sonnet-4.5"},
							},
						},
					},
				},
				{
					Key:   "final",
					Label: "Final Response Form",
					Groups: []GroupConfig{
						{
							Name:   "before",
							Source: "data/Before_Connect_Feedback_Questions_And_Responses.xlsx",
							Sample: 8,
							Models: []ModelConfig{
								{Name: "Claude-4.5-Haiku"},
								{Name: "GPT-4o"},
							},
						},
						{
							Name:   "after",
							Source: "data/After_data_Feedback_Questions_And_Responses.xlsx",
							Sample: 12,
							Models: []ModelConfig{
								{Name: "GPT-5"},
								{Name: "Claude-Sonnet-4.5"},
							},
						},
					},
				},
			},
		},

		Receiver: ReceiverConfig{
			Addr:     "127.0.0.1:8787",
			Database: "data/prefsurvey.db",
			Sheets: map[string]string{
				"entire": "Entire Workflow Compare & Preferences Sheet",
			},
			DefaultSheet: "Final Response Compare & Preferences Sheet",
			AllowOrigins: "*",
			BodyLimitMB:  4,
		},

		Logging: LoggingConfig{
			Level:      "info",
			File:       ".prefsurvey/logs/prefsurvey.log",
			DebugMode:  true,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases, then the result
// is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// EndpointTimeout returns the dispatch timeout; zero means none.
func (c *Config) EndpointTimeout() time.Duration {
	if strings.TrimSpace(c.Endpoint.Timeout) == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Endpoint.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Form returns the form with the given key.
func (c *Config) Form(key string) (FormConfig, bool) {
	for _, f := range c.Survey.Forms {
		if f.Key == key {
			return f, true
		}
	}
	return FormConfig{}, false
}

// ValidDeliveries lists the accepted delivery modes.
var ValidDeliveries = []string{"per_item", "batch"}

// Validate validates the configuration. The endpoint URL is not checked; an
// unconfigured endpoint is reported when a submit is attempted.
func (c *Config) Validate() error {
	validDelivery := false
	for _, d := range ValidDeliveries {
		if c.Survey.Flow.Delivery == d {
			validDelivery = true
			break
		}
	}
	if !validDelivery {
		return fmt.Errorf("invalid delivery mode: %q (valid: %v)", c.Survey.Flow.Delivery, ValidDeliveries)
	}

	if t := strings.TrimSpace(c.Endpoint.Timeout); t != "" {
		if d, err := time.ParseDuration(t); err != nil || d < 0 {
			return fmt.Errorf("invalid endpoint timeout: %q", c.Endpoint.Timeout)
		}
	}

	if len(c.Survey.Forms) == 0 {
		return fmt.Errorf("no survey forms configured")
	}
	keys := make(map[string]bool)
	for i, f := range c.Survey.Forms {
		if f.Key == "" {
			return fmt.Errorf("form %d: key is required", i)
		}
		if keys[f.Key] {
			return fmt.Errorf("duplicate form key: %q", f.Key)
		}
		keys[f.Key] = true
		if err := f.validate(); err != nil {
			return fmt.Errorf("form %q: %w", f.Key, err)
		}
	}
	if c.Survey.DefaultForm != "" && !keys[c.Survey.DefaultForm] {
		return fmt.Errorf("default form %q is not configured", c.Survey.DefaultForm)
	}

	if c.Receiver.DefaultSheet == "" {
		return fmt.Errorf("receiver default_sheet is required")
	}
	return nil
}

func (f FormConfig) validate() error {
	if len(f.Groups) == 0 {
		return fmt.Errorf("no groups configured")
	}
	names := make(map[string]bool)
	for i, g := range f.Groups {
		switch {
		case g.Name == "":
			return fmt.Errorf("group %d: name is required", i)
		case names[g.Name]:
			return fmt.Errorf("duplicate group name: %q", g.Name)
		case g.Source == "":
			return fmt.Errorf("group %q: source is required", g.Name)
		case g.Sample < 0:
			return fmt.Errorf("group %q: sample must not be negative", g.Name)
		case len(g.Models) != 2:
			return fmt.Errorf("group %q: exactly two models are required, got %d", g.Name, len(g.Models))
		}
		for _, m := range g.Models {
			if strings.TrimSpace(m.Name) == "" {
				return fmt.Errorf("group %q: model name is required", g.Name)
			}
		}
		switch g.Format {
		case "", "xlsx", "csv":
		default:
			return fmt.Errorf("group %q: unsupported format %q", g.Name, g.Format)
		}
		names[g.Name] = true
	}
	return nil
}
