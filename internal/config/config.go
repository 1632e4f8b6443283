package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/timmy/fitetl/internal/domain"
)

type Config struct {
	Server    ServerConfig             `mapstructure:"server"`
	Warehouse WarehouseConfig          `mapstructure:"warehouse"`
	Layers    LayersConfig             `mapstructure:"layers"`
	Quality   QualityConfig            `mapstructure:"quality"`
	ETL       ETLConfig                `mapstructure:"etl"`
	Source    SourceConfig             `mapstructure:"source"`
	Storage   StorageConfig            `mapstructure:"storage"`
	Archive   ArchiveConfig            `mapstructure:"archive"`
	API       APIConfig                `mapstructure:"api"`
	Datasets  map[string]DatasetConfig `mapstructure:"datasets"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LayerConfig struct {
	Database string `mapstructure:"database"`
	Schema   string `mapstructure:"schema"`
}

type AnalyticsLayerConfig struct {
	Database         string `mapstructure:"database"`
	DimensionsSchema string `mapstructure:"dimensions_schema"`
	FactsSchema      string `mapstructure:"facts_schema"`
	AggregatesSchema string `mapstructure:"aggregates_schema"`
}

type LayersConfig struct {
	Raw       LayerConfig          `mapstructure:"raw"`
	Curated   LayerConfig          `mapstructure:"curated"`
	Analytics AnalyticsLayerConfig `mapstructure:"analytics"`
	// Metadata holds the job audit table.
	Metadata LayerConfig `mapstructure:"metadata"`
}

type QualityConfig struct {
	NullPercentageThreshold      float64 `mapstructure:"null_percentage_threshold"`
	DuplicatePercentageThreshold float64 `mapstructure:"duplicate_percentage_threshold"`
	MinRecordCount               int     `mapstructure:"min_record_count"`
}

type ETLConfig struct {
	BatchSize               int    `mapstructure:"batch_size"`
	MaxRetries              int    `mapstructure:"max_retries"`
	RetryDelaySeconds       int    `mapstructure:"retry_delay_seconds"`
	EnableDataQualityChecks bool   `mapstructure:"enable_data_quality_checks"`
	LoadMode                string `mapstructure:"load_mode"`
}

// RetryDelay returns RetryDelaySeconds as a duration.
func (c ETLConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

type SourceConfig struct {
	Type    string `mapstructure:"type"` // local or s3
	DataDir string `mapstructure:"data_dir"`
	Prefix  string `mapstructure:"prefix"` // key prefix when reading from object storage
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

type APIConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	APIKey             string `mapstructure:"api_key"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	RequestDelayMs     int    `mapstructure:"request_delay_ms"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
}

type DatasetConfig struct {
	File          string   `mapstructure:"file"`
	Table         string   `mapstructure:"table"`
	DuplicateKeys []string `mapstructure:"duplicate_keys"`
}

// Dataset returns the file/table mapping of a dataset kind.
func (c *Config) Dataset(kind domain.Kind) (DatasetConfig, bool) {
	d, ok := c.Datasets[string(kind)]
	return d, ok
}

// RawTable returns the staging table a dataset kind loads into.
func (c *Config) RawTable(kind domain.Kind) domain.TableRef {
	d, _ := c.Dataset(kind)
	return domain.TableRef{
		Database: c.Layers.Raw.Database,
		Schema:   c.Layers.Raw.Schema,
		Table:    d.Table,
	}
}

// DatasetFiles returns the file name of every dataset kind.
func (c *Config) DatasetFiles() map[domain.Kind]string {
	files := make(map[domain.Kind]string, len(domain.AllKinds))
	for _, kind := range domain.AllKinds {
		if d, ok := c.Dataset(kind); ok {
			files[kind] = d.File
		}
	}
	return files
}

// RawTables returns the staging table of every dataset kind.
func (c *Config) RawTables() map[domain.Kind]domain.TableRef {
	tables := make(map[domain.Kind]domain.TableRef, len(domain.AllKinds))
	for _, kind := range domain.AllKinds {
		tables[kind] = c.RawTable(kind)
	}
	return tables
}

// Validate checks thresholds and that every dataset kind is mapped.
func (c *Config) Validate() error {
	q := c.Quality
	if q.NullPercentageThreshold < 0 || q.NullPercentageThreshold > 100 {
		return fmt.Errorf("quality.null_percentage_threshold must be within [0, 100], got %v", q.NullPercentageThreshold)
	}
	if q.DuplicatePercentageThreshold < 0 || q.DuplicatePercentageThreshold > 100 {
		return fmt.Errorf("quality.duplicate_percentage_threshold must be within [0, 100], got %v", q.DuplicatePercentageThreshold)
	}
	if q.MinRecordCount < 0 {
		return fmt.Errorf("quality.min_record_count must not be negative")
	}
	if c.ETL.BatchSize <= 0 {
		return fmt.Errorf("etl.batch_size must be positive")
	}
	if c.ETL.MaxRetries < 0 || c.ETL.RetryDelaySeconds < 0 {
		return fmt.Errorf("etl retry settings must not be negative")
	}
	if _, err := domain.ParseLoadMode(c.ETL.LoadMode); err != nil {
		return fmt.Errorf("etl.load_mode: %w", err)
	}
	for _, kind := range domain.AllKinds {
		d, ok := c.Dataset(kind)
		if !ok || d.File == "" || d.Table == "" {
			return fmt.Errorf("datasets.%s: file and table are required", kind)
		}
	}
	switch c.Source.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("source.type must be local or s3, got %q", c.Source.Type)
	}
	return c.Warehouse.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("warehouse.driver", "sqlite")
	v.SetDefault("warehouse.path", "./data/warehouse.db")
	v.SetDefault("warehouse.host", "")
	v.SetDefault("warehouse.port", 5432)
	v.SetDefault("warehouse.account", "")
	v.SetDefault("warehouse.user", "")
	v.SetDefault("warehouse.password", "")
	v.SetDefault("warehouse.warehouse", "COMPUTE_WH")
	v.SetDefault("warehouse.role", "")
	v.SetDefault("warehouse.database", "RAW_FITNESS_DB")
	v.SetDefault("warehouse.schema", "STAGING")
	v.SetDefault("warehouse.sslmode", "disable")
	v.SetDefault("warehouse.connect_timeout", "30s")
	v.SetDefault("warehouse.max_idle_conns", 2)
	v.SetDefault("warehouse.max_open_conns", 4)
	v.SetDefault("warehouse.conn_max_lifetime", "30m")
	v.SetDefault("warehouse.auto_migrate", false)
	v.SetDefault("warehouse.log_level", "warn")

	v.SetDefault("layers.raw.database", "RAW_FITNESS_DB")
	v.SetDefault("layers.raw.schema", "STAGING")
	v.SetDefault("layers.curated.database", "CURATED_FITNESS_DB")
	v.SetDefault("layers.curated.schema", "FITNESS_DATA")
	v.SetDefault("layers.analytics.database", "ANALYTICS_FITNESS_DB")
	v.SetDefault("layers.analytics.dimensions_schema", "DIMENSIONS")
	v.SetDefault("layers.analytics.facts_schema", "FACTS")
	v.SetDefault("layers.analytics.aggregates_schema", "AGGREGATES")
	v.SetDefault("layers.metadata.database", "RAW_FITNESS_DB")
	v.SetDefault("layers.metadata.schema", "METADATA")

	v.SetDefault("quality.null_percentage_threshold", 10.0)
	v.SetDefault("quality.duplicate_percentage_threshold", 5.0)
	v.SetDefault("quality.min_record_count", 10)

	v.SetDefault("etl.batch_size", 1000)
	v.SetDefault("etl.max_retries", 3)
	v.SetDefault("etl.retry_delay_seconds", 5)
	v.SetDefault("etl.enable_data_quality_checks", true)
	v.SetDefault("etl.load_mode", "append")

	v.SetDefault("source.type", "local")
	v.SetDefault("source.data_dir", "./data")
	v.SetDefault("source.prefix", "data")

	v.SetDefault("storage.bucket", "fitness-data")
	v.SetDefault("storage.use_ssl", true)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.prefix", "archive")

	v.SetDefault("api.base_url", "https://api.api-ninjas.com/v1")
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("api.request_delay_ms", 500)
	v.SetDefault("api.rate_limit_per_minute", 50)

	for kind, d := range defaultDatasets {
		v.SetDefault("datasets."+kind+".file", d.File)
		v.SetDefault("datasets."+kind+".table", d.Table)
	}
}

var defaultDatasets = map[string]DatasetConfig{
	"exercises":         {File: "exercises_sample.csv", Table: "RAW_EXERCISES"},
	"nutrition":         {File: "nutrition_sample.csv", Table: "RAW_NUTRITION"},
	"members":           {File: "members_sample.csv", Table: "RAW_MEMBERS"},
	"workout_logs":      {File: "workout_logs_sample.csv", Table: "RAW_WORKOUT_LOGS"},
	"nutrition_logs":    {File: "nutrition_logs_sample.csv", Table: "RAW_NUTRITION_LOGS"},
	"member_engagement": {File: "member_engagement_sample.csv", Table: "RAW_MEMBER_ENGAGEMENT"},
}

// Load reads configuration from file, .env and environment variables.
// Parameters:
//   - configPath: explicit config file; empty searches ./configs and the working directory.
// Returns:
//   - *Config: validated configuration.
//   - error: non-nil if reading, decoding or validation fails.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials are never kept in the config file
	v.BindEnv("warehouse.account", "WAREHOUSE_ACCOUNT")
	v.BindEnv("warehouse.user", "WAREHOUSE_USER")
	v.BindEnv("warehouse.password", "WAREHOUSE_PASSWORD")
	v.BindEnv("warehouse.warehouse", "WAREHOUSE_NAME")
	v.BindEnv("warehouse.role", "WAREHOUSE_ROLE")
	v.BindEnv("warehouse.host", "WAREHOUSE_HOST")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("api.api_key", "API_NINJAS_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
