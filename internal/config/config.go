// Package config loads application configuration from config.yaml and the
// environment, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is an explicit
// value passed into every operation that needs it, never ambient state,
// so tests can vary filters without cross-test interference.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	Assessor AssessorConfig `yaml:"assessor" mapstructure:"assessor"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// IngestConfig holds the filters and paging applied to every source pull.
type IngestConfig struct {
	MinValuation        float64  `yaml:"min_valuation" mapstructure:"min_valuation"`
	PermitTypes         []string `yaml:"permit_types" mapstructure:"permit_types"`
	NewConstructionType string   `yaml:"new_construction_type" mapstructure:"new_construction_type"`
	PageSize            int      `yaml:"page_size" mapstructure:"page_size"`
	MaxRecords          int      `yaml:"max_records" mapstructure:"max_records"`
	MinOwnerNameLen     int      `yaml:"min_owner_name_len" mapstructure:"min_owner_name_len"`
}

// SourcesConfig holds the upstream permit dataset endpoints and the
// locality used when synthesizing addresses from fragments.
type SourcesConfig struct {
	PermitsURL   string `yaml:"permits_url" mapstructure:"permits_url"`
	LegacyURL    string `yaml:"legacy_url" mapstructure:"legacy_url"`
	SubmittedURL string `yaml:"submitted_url" mapstructure:"submitted_url"`
	City         string `yaml:"city" mapstructure:"city"`
	Region       string `yaml:"region" mapstructure:"region"`
}

// AssessorConfig configures the county assessor parcel API used for
// project enrichment.
type AssessorConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	DelayMS int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	Workers int    `yaml:"workers" mapstructure:"workers"`
}

// RegistryConfig configures the state business registry used for
// developer contact enrichment.
type RegistryConfig struct {
	SearchURL string `yaml:"search_url" mapstructure:"search_url"`
	DelayMS   int    `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// FetchConfig configures the shared HTTP fetcher.
type FetchConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PERMITSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "permit-scout.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)

	v.SetDefault("ingest.min_valuation", 500_000)
	v.SetDefault("ingest.permit_types", []string{"Bldg-New", "Bldg-Alter/Repair"})
	v.SetDefault("ingest.new_construction_type", "Bldg-New")
	v.SetDefault("ingest.page_size", 1000)
	v.SetDefault("ingest.max_records", 50_000)
	v.SetDefault("ingest.min_owner_name_len", 3)

	v.SetDefault("sources.permits_url", "https://data.lacity.org/resource/pi9x-tg5x.json")
	v.SetDefault("sources.legacy_url", "https://data.lacity.org/resource/hbkd-qubn.json")
	v.SetDefault("sources.submitted_url", "https://data.lacity.org/resource/gwh9-jnip.json")
	v.SetDefault("sources.city", "Los Angeles")
	v.SetDefault("sources.region", "CA")

	v.SetDefault("assessor.base_url", "https://portal.assessor.lacounty.gov/api/parceldetail")
	v.SetDefault("assessor.delay_ms", 500)
	v.SetDefault("assessor.workers", 1)

	v.SetDefault("registry.search_url", "https://bizfileonline.sos.ca.gov/search/business")
	v.SetDefault("registry.delay_ms", 500)

	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.requests_per_second", 2)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
