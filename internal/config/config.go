package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/confecoes-lanca/prospector/internal/outreach"
	"github.com/confecoes-lanca/prospector/internal/pipeline"
	"github.com/confecoes-lanca/prospector/internal/scoring"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig        `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig       `yaml:"openai" mapstructure:"openai"`
	Tavily    TavilyConfig       `yaml:"tavily" mapstructure:"tavily"`
	Jina      JinaConfig         `yaml:"jina" mapstructure:"jina"`
	Firecrawl FirecrawlConfig    `yaml:"firecrawl" mapstructure:"firecrawl"`
	Resend    ResendConfig       `yaml:"resend" mapstructure:"resend"`
	Email     outreach.Config    `yaml:"email" mapstructure:"email"`
	Pipeline  pipeline.Config    `yaml:"pipeline" mapstructure:"pipeline"`
	Scoring   scoring.Thresholds `yaml:"scoring" mapstructure:"scoring"`
	Server    ServerConfig       `yaml:"server" mapstructure:"server"`
	Log       LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	Model          string `yaml:"model" mapstructure:"model"`
	ExplainerModel string `yaml:"explainer_model" mapstructure:"explainer_model"`
}

// OpenAIConfig holds the embeddings provider settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// TavilyConfig holds web search settings.
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ResendConfig holds the email provider credentials.
type ResendConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ServerConfig configures the REST API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("PROSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "prospector.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.explainer_model", "claude-haiku-4-5")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "text-embedding-3-small")
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("resend.base_url", "https://api.resend.com")
	v.SetDefault("email.from", "prospector@confeccoeslanca.com")
	v.SetDefault("pipeline.max_queries", 3)
	v.SetDefault("pipeline.max_results", 30)
	v.SetDefault("pipeline.scrape_concurrency", 5)
	v.SetDefault("pipeline.shortlist_size", 25)
	v.SetDefault("pipeline.max_selected", 20)
	v.SetDefault("pipeline.cache_min_prospects", 10)
	v.SetDefault("scoring.hard_min_price_eur", 375)
	v.SetDefault("scoring.hard_max_stores", 30)
	v.SetDefault("scoring.ideal_price_eur", 800)
	v.SetDefault("scoring.ideal_max_stores", 4)
	v.SetDefault("scoring.rejected_score_cap", 40)

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

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode.
// Modes: "prospect" (full pipeline run), "embed" (client embedding),
// "serve" (REST API), "score" (offline scoring).
func (c *Config) Validate(mode string) error {
	var missing []string

	requireStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				missing = append(missing, "store.database_url is required")
			}
		case "sqlite":
			if c.Store.SQLitePath == "" {
				missing = append(missing, "store.sqlite_path is required")
			}
		default:
			missing = append(missing, "store.driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "prospect":
		requireStore()
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if c.Tavily.Key == "" {
			missing = append(missing, "tavily.key is required")
		}
		if c.OpenAI.Key == "" {
			missing = append(missing, "openai.key is required")
		}
	case "embed":
		requireStore()
		if c.OpenAI.Key == "" {
			missing = append(missing, "openai.key is required")
		}
	case "score":
		requireStore()
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if c.OpenAI.Key == "" {
			missing = append(missing, "openai.key is required")
		}
	case "serve":
		requireStore()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Pipeline.ShortlistSize < 1 {
		missing = append(missing, "pipeline.shortlist_size must be >= 1")
	}
	if c.Pipeline.MaxSelected < 1 {
		missing = append(missing, "pipeline.max_selected must be >= 1")
	}
	if c.Scoring.HardMinPriceEUR < 0 {
		missing = append(missing, "scoring.hard_min_price_eur must be >= 0")
	}
	if c.Scoring.RejectedScoreCap < 0 || c.Scoring.RejectedScoreCap > 100 {
		missing = append(missing, "scoring.rejected_score_cap must be between 0 and 100")
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
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
