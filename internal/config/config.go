package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/repeatwatch/internal/engine"
	"github.com/crimson-sun/repeatwatch/internal/engine/classifier"
	"github.com/crimson-sun/repeatwatch/internal/engine/compactor"
	"github.com/crimson-sun/repeatwatch/internal/engine/scorer"
	"github.com/crimson-sun/repeatwatch/internal/engine/taxonomy"
	"github.com/crimson-sun/repeatwatch/internal/store"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all repeatwatch configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Rules     RulesConfig     `yaml:"rules"`
	Store     StoreConfig     `yaml:"store"`
	Connector ConnectorConfig `yaml:"connector"`
	Output    OutputConfig    `yaml:"output"`
	Log       LogConfig       `yaml:"log"`
}

// EngineConfig holds the boundary gate and timers.
type EngineConfig struct {
	MinConfidence float64       `yaml:"min_confidence"`
	Cooldown      time.Duration `yaml:"cooldown"`
	Pulse         time.Duration `yaml:"pulse"`
	Retention     time.Duration `yaml:"retention"`
}

// ScoringConfig holds similarity weights, bands and keyword overrides.
type ScoringConfig struct {
	TFIDFWeight    float64             `yaml:"tfidf_weight"`
	SemanticWeight float64             `yaml:"semantic_weight"`
	Containment    float64             `yaml:"containment"`
	ExactBand      float64             `yaml:"exact_band"`
	SemanticBand   float64             `yaml:"semantic_band"`
	Keywords       map[string][]string `yaml:"keywords"`
}

// RulesConfig holds the category thresholds.
type RulesConfig struct {
	ExactMatches       int     `yaml:"exact_matches"`
	FrequentSemantic   int     `yaml:"frequent_semantic"`
	OccasionalSemantic int     `yaml:"occasional_semantic"`
	FirstPlaceholder   float64 `yaml:"first_placeholder"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "memory", "file", "sqlite"
	Path    string `yaml:"path"`    // directory for file, database path for sqlite
	Slot    string `yaml:"slot"`
}

// ConnectorConfig selects the utterance source.
type ConnectorConfig struct {
	Provider string            `yaml:"provider"`
	Path     string            `yaml:"path"`
	Encoding string            `yaml:"encoding"`
	Follow   bool              `yaml:"follow"`
	Extra    map[string]string `yaml:"extra"`
}

// OutputConfig selects where classified records go.
type OutputConfig struct {
	Format      string `yaml:"format"` // "stdout", "file", "webhook"
	Path        string `yaml:"path"`
	MaxSize     int64  `yaml:"max_size"`
	Pretty      bool   `yaml:"pretty"`
	Verbosity   string `yaml:"verbosity"` // "minimal", "standard", "full"
	WebhookURL  string `yaml:"webhook_url"`
	RepeatsOnly bool   `yaml:"repeats_only"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	ec := engine.DefaultConfig()
	sc := scorer.DefaultConfig()
	rules := classifier.DefaultRules()
	return Config{
		Engine: EngineConfig{
			MinConfidence: ec.MinConfidence,
			Cooldown:      ec.Cooldown,
			Pulse:         ec.PulseDuration,
			Retention:     store.DefaultRetention,
		},
		Scoring: ScoringConfig{
			TFIDFWeight:    sc.TFIDFWeight,
			SemanticWeight: sc.SemanticWeight,
			Containment:    sc.ContainmentMin,
			ExactBand:      sc.ExactBand,
			SemanticBand:   sc.SemanticBand,
		},
		Rules: RulesConfig{
			ExactMatches:       rules.ExactMatches,
			FrequentSemantic:   rules.FrequentSemantic,
			OccasionalSemantic: rules.OccasionalSemantic,
			FirstPlaceholder:   rules.FirstPlaceholder,
		},
		Store: StoreConfig{
			Backend: "file",
			Slot:    store.DefaultSlot,
		},
		Connector: ConnectorConfig{
			Provider: "stdin",
			Encoding: "utf-8",
		},
		Output: OutputConfig{
			Format:    "stdout",
			Verbosity: "standard",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the file at path (if path is
// non-empty), then REPEATWATCH_* environment variables. Files ending in
// .toml are read as TOML, anything else as YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return goerr.Wrap(err, "read config file", goerr.V("path", path))
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		// TOML tables use the YAML keys and decode through the yaml tags.
		var tree map[string]any
		if err := toml.Unmarshal(data, &tree); err != nil {
			return goerr.Wrap(err, "parse config file", goerr.V("path", path))
		}
		if data, err = yaml.Marshal(tree); err != nil {
			return goerr.Wrap(err, "convert config file", goerr.V("path", path))
		}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return goerr.Wrap(err, "parse config file", goerr.V("path", path))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Engine.MinConfidence = getenvFloat("REPEATWATCH_MIN_CONFIDENCE", c.Engine.MinConfidence)
	c.Engine.Cooldown = getenvDuration("REPEATWATCH_COOLDOWN", c.Engine.Cooldown)
	c.Engine.Pulse = getenvDuration("REPEATWATCH_PULSE", c.Engine.Pulse)
	c.Engine.Retention = getenvDuration("REPEATWATCH_RETENTION", c.Engine.Retention)

	c.Scoring.TFIDFWeight = getenvFloat("REPEATWATCH_TFIDF_WEIGHT", c.Scoring.TFIDFWeight)
	c.Scoring.SemanticWeight = getenvFloat("REPEATWATCH_SEMANTIC_WEIGHT", c.Scoring.SemanticWeight)
	c.Scoring.Containment = getenvFloat("REPEATWATCH_CONTAINMENT", c.Scoring.Containment)
	c.Scoring.ExactBand = getenvFloat("REPEATWATCH_EXACT_BAND", c.Scoring.ExactBand)
	c.Scoring.SemanticBand = getenvFloat("REPEATWATCH_SEMANTIC_BAND", c.Scoring.SemanticBand)

	c.Rules.ExactMatches = getenvInt("REPEATWATCH_EXACT_MATCHES", c.Rules.ExactMatches)
	c.Rules.FrequentSemantic = getenvInt("REPEATWATCH_FREQUENT_SEMANTIC", c.Rules.FrequentSemantic)
	c.Rules.OccasionalSemantic = getenvInt("REPEATWATCH_OCCASIONAL_SEMANTIC", c.Rules.OccasionalSemantic)
	c.Rules.FirstPlaceholder = getenvFloat("REPEATWATCH_FIRST_PLACEHOLDER", c.Rules.FirstPlaceholder)

	c.Store.Backend = getenv("REPEATWATCH_STORE", c.Store.Backend)
	c.Store.Path = getenv("REPEATWATCH_STORE_PATH", c.Store.Path)
	c.Store.Slot = getenv("REPEATWATCH_STORE_SLOT", c.Store.Slot)

	c.Connector.Provider = getenv("REPEATWATCH_CONNECTOR", c.Connector.Provider)
	c.Connector.Path = getenv("REPEATWATCH_INPUT", c.Connector.Path)
	c.Connector.Encoding = getenv("REPEATWATCH_ENCODING", c.Connector.Encoding)
	c.Connector.Follow = getenvBool("REPEATWATCH_FOLLOW", c.Connector.Follow)

	c.Output.Format = getenv("REPEATWATCH_OUTPUT", c.Output.Format)
	c.Output.Path = getenv("REPEATWATCH_OUTPUT_PATH", c.Output.Path)
	c.Output.MaxSize = int64(getenvInt("REPEATWATCH_OUTPUT_MAX_SIZE", int(c.Output.MaxSize)))
	c.Output.Pretty = getenvBool("REPEATWATCH_OUTPUT_PRETTY", c.Output.Pretty)
	c.Output.Verbosity = getenv("REPEATWATCH_VERBOSITY", c.Output.Verbosity)
	c.Output.WebhookURL = getenv("REPEATWATCH_WEBHOOK_URL", c.Output.WebhookURL)
	c.Output.RepeatsOnly = getenvBool("REPEATWATCH_WEBHOOK_REPEATS_ONLY", c.Output.RepeatsOnly)

	c.Log.Level = getenv("REPEATWATCH_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("REPEATWATCH_LOG_FORMAT", c.Log.Format)
}

// Validate reports every problem found, wrapped around ErrInvalid.
func (c Config) Validate() error {
	var problems []string
	add := func(msg string) { problems = append(problems, msg) }

	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			add(name + " must be within [0, 1], got " + strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	unit("min confidence", c.Engine.MinConfidence)
	unit("tfidf weight", c.Scoring.TFIDFWeight)
	unit("semantic weight", c.Scoring.SemanticWeight)
	unit("exact band", c.Scoring.ExactBand)
	unit("semantic band", c.Scoring.SemanticBand)
	unit("first placeholder", c.Rules.FirstPlaceholder)

	if c.Scoring.TFIDFWeight+c.Scoring.SemanticWeight == 0 {
		add("tfidf and semantic weights cannot both be zero")
	}
	if c.Scoring.Containment <= 0 || c.Scoring.Containment > 1 {
		add("containment ratio must be within (0, 1]")
	}
	if c.Scoring.SemanticBand > c.Scoring.ExactBand {
		add("semantic band must not exceed exact band")
	}
	if _, err := taxonomy.New(c.Scoring.Keywords); err != nil {
		add("keywords: " + err.Error())
	}

	if c.Rules.ExactMatches < 1 || c.Rules.FrequentSemantic < 1 || c.Rules.OccasionalSemantic < 1 {
		add("rule match counts must be at least 1")
	}
	if c.Rules.OccasionalSemantic > c.Rules.FrequentSemantic {
		add("occasional semantic count must not exceed frequent semantic count")
	}

	if c.Engine.Cooldown < 0 {
		add("cooldown must not be negative")
	}
	if c.Engine.Pulse <= 0 {
		add("pulse must be positive")
	}
	if c.Engine.Retention <= 0 {
		add("retention must be positive")
	}

	switch c.Store.Backend {
	case "memory":
	case "file", "sqlite":
		if c.Store.Slot == "" {
			add("store slot must not be empty")
		}
	default:
		add("store backend must be memory, file or sqlite, got " + strconv.Quote(c.Store.Backend))
	}

	if c.Connector.Provider == "" {
		add("connector provider must not be empty")
	}

	switch c.Output.Format {
	case "stdout":
	case "file":
		if c.Output.Path == "" {
			add("file output requires REPEATWATCH_OUTPUT_PATH")
		}
	case "webhook":
		if c.Output.WebhookURL == "" {
			add("webhook output requires REPEATWATCH_WEBHOOK_URL")
		}
	default:
		add("output format must be stdout, file or webhook, got " + strconv.Quote(c.Output.Format))
	}
	if _, err := compactor.ParseVerbosity(c.Output.Verbosity); err != nil {
		add("verbosity must be minimal, standard or full, got " + strconv.Quote(c.Output.Verbosity))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		add("log format must be text or json, got " + strconv.Quote(c.Log.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return goerr.Wrap(ErrInvalid, strings.Join(problems, "; "))
}

// ScorerConfig converts the scoring settings.
func (c Config) ScorerConfig() scorer.Config {
	return scorer.Config{
		TFIDFWeight:    c.Scoring.TFIDFWeight,
		SemanticWeight: c.Scoring.SemanticWeight,
		ContainmentMin: c.Scoring.Containment,
		ExactBand:      c.Scoring.ExactBand,
		SemanticBand:   c.Scoring.SemanticBand,
	}
}

// ClassifierRules converts the rule settings.
func (c Config) ClassifierRules() classifier.Rules {
	return classifier.Rules{
		ExactMatches:       c.Rules.ExactMatches,
		FrequentSemantic:   c.Rules.FrequentSemantic,
		OccasionalSemantic: c.Rules.OccasionalSemantic,
		FirstPlaceholder:   c.Rules.FirstPlaceholder,
	}
}

// EngineConfig converts the engine settings.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		MinConfidence: c.Engine.MinConfidence,
		Cooldown:      c.Engine.Cooldown,
		PulseDuration: c.Engine.Pulse,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
