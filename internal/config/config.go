package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/corpus-refresh/internal/model"
)

// EnvPrefix is the prefix for environment overrides and numbered oracle
// credentials (REFRESH_ORACLE_KEY_1, REFRESH_ORACLE_KEY_2, ...).
const EnvPrefix = "REFRESH"

// DateLayout is the layout of configured dates.
const DateLayout = "2006-01-02"

// Config holds the full application configuration.
type Config struct {
	Oracle  OracleConfig  `yaml:"oracle" mapstructure:"oracle"`
	Corpus  CorpusConfig  `yaml:"corpus" mapstructure:"corpus"`
	Ledger  LedgerConfig  `yaml:"ledger" mapstructure:"ledger"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// OracleConfig configures the generation service and how it is called.
type OracleConfig struct {
	Provider         string   `yaml:"provider" mapstructure:"provider"`
	Keys             []string `yaml:"keys" mapstructure:"keys"`
	Model            string   `yaml:"model" mapstructure:"model"`
	MaxTokens        int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature      float64  `yaml:"temperature" mapstructure:"temperature"`
	Search           bool     `yaml:"search" mapstructure:"search"`
	MaxAttempts      int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int      `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int      `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	CallDelayMs      int      `yaml:"call_delay_ms" mapstructure:"call_delay_ms"`
	RecordDelayMs    int      `yaml:"record_delay_ms" mapstructure:"record_delay_ms"`
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BreakerThreshold int      `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// CallDelay is the minimum spacing between oracle calls.
func (o OracleConfig) CallDelay() time.Duration {
	return time.Duration(o.CallDelayMs) * time.Millisecond
}

// RecordDelay is the pause between consecutive record passes.
func (o OracleConfig) RecordDelay() time.Duration {
	return time.Duration(o.RecordDelayMs) * time.Millisecond
}

// Timeout bounds a single oracle call.
func (o OracleConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSecs) * time.Second
}

// CorpusConfig locates the record corpus and describes its sections.
type CorpusConfig struct {
	Path              string          `yaml:"path" mapstructure:"path"`
	Collection        string          `yaml:"collection" mapstructure:"collection"`
	EvidencePath      string          `yaml:"evidence_path" mapstructure:"evidence_path"`
	MinTextLength     int             `yaml:"min_text_length" mapstructure:"min_text_length"`
	MaxSparseKeys     int             `yaml:"max_sparse_keys" mapstructure:"max_sparse_keys"`
	ReenhanceDays     int             `yaml:"reenhance_after_days" mapstructure:"reenhance_after_days"`
	Sections          []SectionConfig `yaml:"sections" mapstructure:"sections"`
}

// ReenhanceAfter is the age after which an enhanced record is analyzed
// again. Zero means every record is analyzed on every run.
func (c CorpusConfig) ReenhanceAfter() time.Duration {
	if c.ReenhanceDays <= 0 {
		return 0
	}
	return time.Duration(c.ReenhanceDays) * 24 * time.Hour
}

// SectionConfig overrides the built-in section list.
type SectionConfig struct {
	Name         string                `yaml:"name" mapstructure:"name"`
	Kind         string                `yaml:"kind" mapstructure:"kind"`
	Topic        string                `yaml:"topic" mapstructure:"topic"`
	Template     []model.TemplateField `yaml:"template" mapstructure:"template"`
	FallbackKeys []string              `yaml:"fallback_keys" mapstructure:"fallback_keys"`
	DroppedKeys  []string              `yaml:"dropped_keys" mapstructure:"dropped_keys"`
}

// ResolveSections returns the configured sections, or the built-in
// bilateral-relations sections when none are configured.
func (c CorpusConfig) ResolveSections() ([]model.Section, error) {
	if len(c.Sections) == 0 {
		return model.DefaultSections(), nil
	}
	out := make([]model.Section, 0, len(c.Sections))
	seen := make(map[string]bool, len(c.Sections))
	for _, sc := range c.Sections {
		if sc.Name == "" {
			return nil, eris.New("config: section without name")
		}
		if seen[sc.Name] {
			return nil, eris.Errorf("config: duplicate section %q", sc.Name)
		}
		seen[sc.Name] = true
		kind, err := model.ParseFieldKind(sc.Kind)
		if err != nil {
			return nil, eris.Wrapf(err, "config: section %q", sc.Name)
		}
		topic := sc.Topic
		if topic == "" {
			topic = strings.ReplaceAll(sc.Name, "_", " ")
		}
		out = append(out, model.Section{
			Name:         sc.Name,
			Kind:         kind,
			Topic:        topic,
			Template:     sc.Template,
			FallbackKeys: sc.FallbackKeys,
			DroppedKeys:  sc.DroppedKeys,
		})
	}
	return out, nil
}

// LedgerConfig configures the dated-update feed.
type LedgerConfig struct {
	Path              string  `yaml:"path" mapstructure:"path"`
	MinDate           string  `yaml:"min_date" mapstructure:"min_date"`
	MaxCandidates     int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	CoverageThreshold float64 `yaml:"coverage_threshold" mapstructure:"coverage_threshold"`
}

// MinTime parses MinDate.
func (l LedgerConfig) MinTime() (time.Time, error) {
	t, err := time.Parse(DateLayout, l.MinDate)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "config: parse ledger.min_date %q", l.MinDate)
	}
	return t, nil
}

// SourcesConfig points at an optional source catalog override.
type SourcesConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// StoreConfig configures run-history persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("oracle.provider", "gemini")
	v.SetDefault("oracle.model", "gemini-2.5-flash")
	v.SetDefault("oracle.max_tokens", 4000)
	v.SetDefault("oracle.temperature", 0.1)
	v.SetDefault("oracle.search", true)
	v.SetDefault("oracle.max_attempts", 3)
	v.SetDefault("oracle.initial_backoff_ms", 2000)
	v.SetDefault("oracle.max_backoff_ms", 20000)
	v.SetDefault("oracle.call_delay_ms", 1000)
	v.SetDefault("oracle.record_delay_ms", 2000)
	v.SetDefault("oracle.timeout_secs", 120)
	v.SetDefault("oracle.breaker_threshold", 5)
	v.SetDefault("oracle.breaker_reset_secs", 60)
	v.SetDefault("corpus.path", "data/enhanced_bilateral_relations.json")
	v.SetDefault("corpus.collection", "enhanced_bilateral_relations")
	v.SetDefault("corpus.evidence_path", "data/diplomatic_feeds.json")
	v.SetDefault("corpus.min_text_length", 50)
	v.SetDefault("corpus.max_sparse_keys", 2)
	v.SetDefault("corpus.reenhance_after_days", 14)
	v.SetDefault("ledger.path", "data/tariff_updates.json")
	v.SetDefault("ledger.min_date", "2025-04-02")
	v.SetDefault("ledger.max_candidates", 10)
	v.SetDefault("ledger.coverage_threshold", 0.7)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/refresh.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.Oracle.Keys = mergeKeys(cfg.Oracle.Keys, numberedKeys(os.LookupEnv))

	return &cfg, nil
}

// numberedKeys reads REFRESH_ORACLE_KEY_1, _2, ... until the first gap.
func numberedKeys(lookup func(string) (string, bool)) []string {
	var keys []string
	for i := 1; ; i++ {
		val, ok := lookup(fmt.Sprintf("%s_ORACLE_KEY_%d", EnvPrefix, i))
		if !ok {
			return keys
		}
		if val = strings.TrimSpace(val); val != "" {
			keys = append(keys, val)
		}
	}
}

// mergeKeys concatenates key lists, dropping blanks and duplicates while
// keeping first-seen order.
func mergeKeys(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, k := range list {
			k = strings.TrimSpace(k)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks the settings a command mode needs. Modes are "refresh",
// "feed" and "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	requireOracle := func() {
		switch c.Oracle.Provider {
		case "gemini", "anthropic":
		default:
			errs = append(errs, fmt.Sprintf("oracle.provider %q must be gemini or anthropic", c.Oracle.Provider))
		}
		if len(c.Oracle.Keys) == 0 {
			errs = append(errs, "oracle.keys or "+EnvPrefix+"_ORACLE_KEY_1 is required")
		}
		if c.Oracle.Model == "" {
			errs = append(errs, "oracle.model is required")
		}
	}
	requireStore := func() {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				errs = append(errs, "store.path is required for sqlite")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for postgres")
			}
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
		}
	}

	switch mode {
	case "refresh":
		requireOracle()
		requireStore()
		if c.Corpus.Path == "" {
			errs = append(errs, "corpus.path is required")
		}
		if c.Corpus.Collection == "" {
			errs = append(errs, "corpus.collection is required")
		}
		if _, err := c.Corpus.ResolveSections(); err != nil {
			errs = append(errs, err.Error())
		}
	case "feed":
		requireStore()
		if c.Ledger.Path == "" {
			errs = append(errs, "ledger.path is required")
		}
		if _, err := c.Ledger.MinTime(); err != nil {
			errs = append(errs, "ledger.min_date must be YYYY-MM-DD")
		}
		if c.Ledger.CoverageThreshold < 0 || c.Ledger.CoverageThreshold > 1 {
			errs = append(errs, "ledger.coverage_threshold must be between 0 and 1")
		}
	case "runs":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
