package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Platform    PlatformConfig    `yaml:"platform" mapstructure:"platform"`
	ScrapingBee ScrapingBeeConfig `yaml:"scrapingbee" mapstructure:"scrapingbee"`
	Firecrawl   FirecrawlConfig   `yaml:"firecrawl" mapstructure:"firecrawl"`
	Jina        JinaConfig        `yaml:"jina" mapstructure:"jina"`
	Local       LocalConfig       `yaml:"local" mapstructure:"local"`
	Scrape      ScrapeConfig      `yaml:"scrape" mapstructure:"scrape"`
	Confidence  ConfidenceConfig  `yaml:"confidence" mapstructure:"confidence"`
	Media       MediaConfig       `yaml:"media" mapstructure:"media"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Circuit     CircuitConfig     `yaml:"circuit" mapstructure:"circuit"`
	Merge       MergeConfig       `yaml:"merge" mapstructure:"merge"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Pricing     PricingConfig     `yaml:"pricing" mapstructure:"pricing"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PlatformConfig selects the fetch provider and its fallbacks.
type PlatformConfig struct {
	Active    string   `yaml:"active" mapstructure:"active"`
	Fallbacks []string `yaml:"fallbacks" mapstructure:"fallbacks"`
}

// ScrapingBeeConfig holds ScrapingBee API settings.
type ScrapingBeeConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	PremiumProxy bool   `yaml:"premium_proxy" mapstructure:"premium_proxy"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Locale   string `yaml:"locale" mapstructure:"locale"`
	ProxyURL string `yaml:"proxy_url" mapstructure:"proxy_url"`
}

// LocalConfig configures the direct net/http fetcher.
type LocalConfig struct {
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// SPAConfig configures single-page-app detection and rendering waits.
type SPAConfig struct {
	MinContentLength    int     `yaml:"min_content_length" mapstructure:"min_content_length"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	WaitMs              int     `yaml:"wait_ms" mapstructure:"wait_ms"`
}

// ScrapeConfig configures per-listing scraping behavior.
type ScrapeConfig struct {
	InterRequestDelayMs       int       `yaml:"inter_request_delay_ms" mapstructure:"inter_request_delay_ms"`
	ManualExtractionThreshold float64   `yaml:"manual_extraction_threshold" mapstructure:"manual_extraction_threshold"`
	SPA                       SPAConfig `yaml:"spa" mapstructure:"spa"`
	RequestTimeoutSecs        int       `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	ExcludePaths              []string  `yaml:"exclude_paths" mapstructure:"exclude_paths"`
	EnginesFile               string    `yaml:"engines_file" mapstructure:"engines_file"`
	Country                   string    `yaml:"country" mapstructure:"country"`
	UseProxy                  bool      `yaml:"use_proxy" mapstructure:"use_proxy"`
	SkipUnchanged             bool      `yaml:"skip_unchanged" mapstructure:"skip_unchanged"`
}

// ConfidenceConfig holds the manual-extraction confidence weights.
type ConfidenceConfig struct {
	SizeWeight        float64  `yaml:"size_weight" mapstructure:"size_weight"`
	SizeCap           int      `yaml:"size_cap" mapstructure:"size_cap"`
	DepthWeight       float64  `yaml:"depth_weight" mapstructure:"depth_weight"`
	DepthCap          int      `yaml:"depth_cap" mapstructure:"depth_cap"`
	KeywordWeight     float64  `yaml:"keyword_weight" mapstructure:"keyword_weight"`
	KeywordCap        float64  `yaml:"keyword_cap" mapstructure:"keyword_cap"`
	Keywords          []string `yaml:"keywords" mapstructure:"keywords"`
	JSONScriptMinimum float64  `yaml:"json_script_minimum" mapstructure:"json_script_minimum"`
}

// MediaConfig configures media filtering and download requirements.
type MediaConfig struct {
	MinRelevanceScore float64  `yaml:"min_relevance_score" mapstructure:"min_relevance_score"`
	MinWidth          int      `yaml:"min_width" mapstructure:"min_width"`
	MinHeight         int      `yaml:"min_height" mapstructure:"min_height"`
	MinSizeKB         int      `yaml:"min_size_kb" mapstructure:"min_size_kb"`
	MaxSizeMB         int      `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	SupportedFormats  []string `yaml:"supported_formats" mapstructure:"supported_formats"`
	BatchSize         int      `yaml:"batch_size" mapstructure:"batch_size"`
	ProbeBytes        int      `yaml:"probe_bytes" mapstructure:"probe_bytes"`
	MaxPerListing     int      `yaml:"max_per_listing" mapstructure:"max_per_listing"`
}

// RetryConfig configures the retry policy around engine scrapes.
type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	DelayMs           int     `yaml:"delay_ms" mapstructure:"delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
}

// CircuitConfig configures the per-provider circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// MergeConfig configures the merge of scraped data into listings.
type MergeConfig struct {
	// ProtectedFields is a CSV string or a list of "field", "field:mode" or
	// {field, mode} entries.
	ProtectedFields any `yaml:"protected_fields" mapstructure:"protected_fields"`
}

// StorageConfig configures where downloaded media is written.
type StorageConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	PublicBaseURL string `yaml:"public_base_url" mapstructure:"public_base_url"`
}

// CacheConfig configures the per-domain change cache.
type CacheConfig struct {
	Driver    string `yaml:"driver" mapstructure:"driver"`
	Dir       string `yaml:"dir" mapstructure:"dir"`
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int    `yaml:"redis_db" mapstructure:"redis_db"`
	TTLHours  int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	ScrapingBee CreditPricing `yaml:"scrapingbee" mapstructure:"scrapingbee"`
	Firecrawl   CreditPricing `yaml:"firecrawl" mapstructure:"firecrawl"`
	Jina        JinaPricing   `yaml:"jina" mapstructure:"jina"`
}

// CreditPricing prices a credit-based plan.
type CreditPricing struct {
	PlanMonthly     float64 `yaml:"plan_monthly" mapstructure:"plan_monthly"`
	CreditsIncluded float64 `yaml:"credits_included" mapstructure:"credits_included"`
}

// JinaPricing holds Jina Reader pricing.
type JinaPricing struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// BatchConfig configures batch runs.
type BatchConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("KONDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "kondo.db")
	v.SetDefault("platform.active", "scrapingbee")
	v.SetDefault("platform.fallbacks", []string{"local"})
	v.SetDefault("scrapingbee.base_url", "https://app.scrapingbee.com/api/v1/")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.locale", "pt-BR")
	v.SetDefault("local.user_agent", "Mozilla/5.0 (compatible; KondoBot/1.0)")
	v.SetDefault("local.max_body_bytes", 5*1024*1024)

	v.SetDefault("scrape.inter_request_delay_ms", 2000)
	v.SetDefault("scrape.manual_extraction_threshold", 0.7)
	v.SetDefault("scrape.spa.min_content_length", 500)
	v.SetDefault("scrape.spa.confidence_threshold", 0.5)
	v.SetDefault("scrape.spa.wait_ms", 3000)
	v.SetDefault("scrape.request_timeout_secs", 60)
	v.SetDefault("scrape.exclude_paths", []string{})
	v.SetDefault("scrape.country", "br")
	v.SetDefault("scrape.use_proxy", false)
	v.SetDefault("scrape.skip_unchanged", false)

	v.SetDefault("confidence.size_weight", 0.3)
	v.SetDefault("confidence.size_cap", 10000)
	v.SetDefault("confidence.depth_weight", 0.2)
	v.SetDefault("confidence.depth_cap", 10)
	v.SetDefault("confidence.keyword_weight", 0.05)
	v.SetDefault("confidence.keyword_cap", 0.5)
	v.SetDefault("confidence.json_script_minimum", 0.3)

	v.SetDefault("media.min_relevance_score", 0.5)
	v.SetDefault("media.min_width", 400)
	v.SetDefault("media.min_height", 300)
	v.SetDefault("media.min_size_kb", 10)
	v.SetDefault("media.max_size_mb", 20)
	v.SetDefault("media.supported_formats", []string{"jpg", "jpeg", "png", "webp", "avif", "gif", "mp4", "webm"})
	v.SetDefault("media.batch_size", 4)
	v.SetDefault("media.probe_bytes", 65536)
	v.SetDefault("media.max_per_listing", 60)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay_ms", 1000)
	v.SetDefault("retry.backoff_multiplier", 2.0)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 60)

	v.SetDefault("merge.protected_fields", []string{})

	v.SetDefault("storage.dir", "./media")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/media")
	v.SetDefault("cache.driver", "file")
	v.SetDefault("cache.dir", ".cache/sites")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl_hours", 168)

	v.SetDefault("pricing.scrapingbee.plan_monthly", 49.00)
	v.SetDefault("pricing.scrapingbee.credits_included", 150000)
	v.SetDefault("pricing.firecrawl.plan_monthly", 19.00)
	v.SetDefault("pricing.firecrawl.credits_included", 3000)
	v.SetDefault("pricing.jina.per_mtok", 0.02)

	v.SetDefault("batch.limit", 100)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the configuration for the given run mode ("scrape",
// "serve" or "migrate") and reports every problem found.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "migrate":
	case "scrape", "serve":
		errs = append(errs, c.validateScrape()...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateScrape() []string {
	var errs []string
	if c.Platform.Active == "" {
		errs = append(errs, "platform.active is required")
	}
	for _, name := range append([]string{c.Platform.Active}, c.Platform.Fallbacks...) {
		switch name {
		case "scrapingbee":
			if c.ScrapingBee.Key == "" {
				errs = append(errs, "scrapingbee.key is required")
			}
		case "firecrawl":
			if c.Firecrawl.Key == "" {
				errs = append(errs, "firecrawl.key is required")
			}
		case "jina", "local", "":
		default:
			errs = append(errs, fmt.Sprintf("platform %q is not supported", name))
		}
	}
	switch c.Cache.Driver {
	case "file", "redis", "none":
	default:
		errs = append(errs, fmt.Sprintf("cache.driver %q is not supported", c.Cache.Driver))
	}
	if t := c.Scrape.ManualExtractionThreshold; t < 0 || t > 1 {
		errs = append(errs, "scrape.manual_extraction_threshold must be between 0 and 1")
	}
	if t := c.Scrape.SPA.ConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, "scrape.spa.confidence_threshold must be between 0 and 1")
	}
	if s := c.Media.MinRelevanceScore; s < 0 || s > 1 {
		errs = append(errs, "media.min_relevance_score must be between 0 and 1")
	}
	if c.Media.BatchSize < 1 || c.Media.BatchSize > 32 {
		errs = append(errs, "media.batch_size must be between 1 and 32")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry.max_attempts must be >= 1")
	}
	if c.Retry.BackoffMultiplier < 1 {
		errs = append(errs, "retry.backoff_multiplier must be >= 1")
	}
	if c.Scrape.InterRequestDelayMs < 0 {
		errs = append(errs, "scrape.inter_request_delay_ms must be >= 0")
	}
	if c.Confidence.SizeWeight < 0 || c.Confidence.DepthWeight < 0 || c.Confidence.KeywordWeight < 0 {
		errs = append(errs, "confidence weights must be >= 0")
	}
	return errs
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
