package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Apify      ApifyConfig      `yaml:"apify" mapstructure:"apify"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	SMS        SMSConfig        `yaml:"sms" mapstructure:"sms"`
	Email      EmailConfig      `yaml:"email" mapstructure:"email"`
	Notify     NotifyConfig     `yaml:"notify" mapstructure:"notify"`
	Lookup     LookupConfig     `yaml:"lookup" mapstructure:"lookup"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Poll       PollConfig       `yaml:"poll" mapstructure:"poll"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the qualification filter
// and the contact extraction fallback.
type AnthropicConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	Model    string `yaml:"model" mapstructure:"model"`
	MaxChars int    `yaml:"max_chars" mapstructure:"max_chars"`
}

// GoogleConfig holds Google Custom Search credentials.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	CSEID   string `yaml:"cse_id" mapstructure:"cse_id"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ApifyConfig holds Apify API settings for the dataset source and the
// realtor agent scraper fallback.
type ApifyConfig struct {
	Token        string `yaml:"token" mapstructure:"token"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	DatasetID    string `yaml:"dataset_id" mapstructure:"dataset_id"`
	RealtorActor string `yaml:"realtor_actor" mapstructure:"realtor_actor"`
}

// JinaConfig holds Jina AI Reader/Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// NotionConfig holds the Notion ledger database settings.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	LedgerDB string `yaml:"ledger_db" mapstructure:"ledger_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings for the optional CRM sink.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// SMSConfig holds SMS gateway settings. Messages go to each lead's
// resolved agent phone.
type SMSConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EmailConfig holds SMTP settings for the email channel.
type EmailConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

// NotifyConfig selects the outbound channel and message template.
type NotifyConfig struct {
	Channel      string `yaml:"channel" mapstructure:"channel"`
	TemplateFile string `yaml:"template_file" mapstructure:"template_file"`
}

// LookupConfig configures the contact lookup chain.
type LookupConfig struct {
	TimeoutSecs      int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PageTimeoutSecs  int  `yaml:"page_timeout_secs" mapstructure:"page_timeout_secs"`
	MaxLinks         int  `yaml:"max_links" mapstructure:"max_links"`
	CoolOffSecs      int  `yaml:"cool_off_secs" mapstructure:"cool_off_secs"`
	FailureThreshold int  `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	LLMExtract       bool `yaml:"llm_extract" mapstructure:"llm_extract"`
}

// PipelineConfig configures batch processing behavior.
type PipelineConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	SeenPolicy    string `yaml:"seen_policy" mapstructure:"seen_policy"`
}

// Seen-set marking policies. BestEffortOnce marks a listing seen even when
// notification fails; RetryUntilNotified releases the claim on notify failure
// so the next batch retries delivery.
const (
	SeenPolicyBestEffortOnce     = "best_effort_once"
	SeenPolicyRetryUntilNotified = "retry_until_notified"
)

// SourceConfig selects the listing source for run/poll.
type SourceConfig struct {
	Kind string `yaml:"kind" mapstructure:"kind"` // file | http | ftp | apify
	Path string `yaml:"path" mapstructure:"path"` // file path or URL
}

// PollConfig configures the jittered polling loop.
type PollConfig struct {
	MinSecs int `yaml:"min_secs" mapstructure:"min_secs"`
	MaxSecs int `yaml:"max_secs" mapstructure:"max_secs"`
}

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("SHORTSALE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "shortsale.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_chars", 3500)
	v.SetDefault("google.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.realtor_actor", "drobnikj~realtor-agent-scraper")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("sms.base_url", "https://api.smstext.app")
	v.SetDefault("email.port", 587)
	v.SetDefault("notify.channel", "sms")
	v.SetDefault("lookup.timeout_secs", 30)
	v.SetDefault("lookup.page_timeout_secs", 12)
	v.SetDefault("lookup.max_links", 5)
	v.SetDefault("lookup.cool_off_secs", 300)
	v.SetDefault("lookup.failure_threshold", 3)
	v.SetDefault("lookup.llm_extract", true)
	v.SetDefault("pipeline.max_concurrent", 4)
	v.SetDefault("pipeline.seen_policy", SeenPolicyBestEffortOnce)
	v.SetDefault("source.kind", "apify")
	v.SetDefault("poll.min_secs", 65)
	v.SetDefault("poll.max_secs", 85)

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
