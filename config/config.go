package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Ramsey-B/fern/pkg/artifact"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/mailbox"
	fernredis "github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

const (
	CounterBackendRedis = "redis"
	CounterBackendStore = "store"
)

type Config struct {
	AppName                 string        `mapstructure:"app_name"`
	Port                    int           `mapstructure:"port"`
	LogLevel                string        `mapstructure:"log_level"`
	PrettyLogs              bool          `mapstructure:"pretty_logs"`
	HttpServerReadTimeout   time.Duration `mapstructure:"http_server_read_timeout"`
	HttpServerWriteTimeout  time.Duration `mapstructure:"http_server_write_timeout"`
	HttpServerIdleTimeout   time.Duration `mapstructure:"http_server_idle_timeout"`
	HttpServerShutdownGrace time.Duration `mapstructure:"http_server_shutdown_grace"`
	StartupMaxAttempts      int           `mapstructure:"startup_max_attempts"`

	// Database
	DatabaseDriver                string        `mapstructure:"db_driver"`
	DatabaseHost                  string        `mapstructure:"db_host"`
	DatabasePort                  int           `mapstructure:"db_port"`
	DatabaseUserName              string        `mapstructure:"db_user_name"`
	DatabasePassword              string        `mapstructure:"db_password"`
	DatabaseName                  string        `mapstructure:"db_name"`
	DatabaseSSLMode               string        `mapstructure:"db_ssl_mode"`
	DatabasePath                  string        `mapstructure:"db_path"` // sqlite only
	DatabaseMaxOpenConns          int           `mapstructure:"db_max_open_conns"`
	DatabaseMaxIdleConns          int           `mapstructure:"db_max_idle_conns"`
	DatabaseConnMaxLifetime       time.Duration `mapstructure:"db_conn_max_lifetime"`
	DatabaseAutoMigrate           bool          `mapstructure:"db_auto_migrate"`
	DatabaseMigrationVersion      int           `mapstructure:"db_migration_version"`
	DatabaseMigrationForce        int           `mapstructure:"db_migration_force"`
	DatabaseMigrationAutoRollback bool          `mapstructure:"db_migration_auto_rollback"`

	// Processing
	StoreTimeout        time.Duration `mapstructure:"store_timeout"`
	ReconcileRetryDelay time.Duration `mapstructure:"reconcile_retry_delay"`
	UTCOffsetHours      int           `mapstructure:"utc_offset_hours"`
	DefaultClient       string        `mapstructure:"default_client"`
	CarrierCacheSize    int           `mapstructure:"carrier_cache_size"`
	CarrierCacheTTL     time.Duration `mapstructure:"carrier_cache_ttl"`

	// Artifacts
	ArtifactDir            string        `mapstructure:"artifact_dir"`
	ArtifactFormat         string        `mapstructure:"artifact_format"`
	ArtifactCategory       string        `mapstructure:"artifact_category"`
	ArtifactSender         string        `mapstructure:"artifact_sender"`
	ArtifactSignaturePath  string        `mapstructure:"artifact_signature_path"`
	ArtifactCounterBackend string        `mapstructure:"artifact_counter_backend"`
	ArtifactCounterTTL     time.Duration `mapstructure:"artifact_counter_ttl"`

	// Redis
	RedisEnabled   bool   `mapstructure:"redis_enabled"`
	RedisHost      string `mapstructure:"redis_host"`
	RedisPort      int    `mapstructure:"redis_port"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`

	// Kafka producer (task lifecycle events)
	KafkaEnabled      bool          `mapstructure:"kafka_enabled"`
	KafkaBrokers      []string      `mapstructure:"kafka_brokers"`
	KafkaTopic        string        `mapstructure:"kafka_topic"`
	KafkaBatchSize    int           `mapstructure:"kafka_batch_size"`
	KafkaBatchTimeout time.Duration `mapstructure:"kafka_batch_timeout"`
	KafkaRequiredAcks int           `mapstructure:"kafka_required_acks"`
	KafkaCompression  string        `mapstructure:"kafka_compression"`

	// Mailbox
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUsername string `mapstructure:"imap_username"`
	IMAPPassword string `mapstructure:"imap_password"`
	IMAPTLS      bool   `mapstructure:"imap_tls"`
	IMAPMailbox  string `mapstructure:"imap_mailbox"`
	IMAPLimit    int    `mapstructure:"imap_limit"`

	// Tracing
	TracingEnabled  bool   `mapstructure:"tracing_enabled"`
	TracingExporter string `mapstructure:"tracing_exporter"`
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	OTLPProtocol    string `mapstructure:"otlp_protocol"`
	OTLPInsecure    bool   `mapstructure:"otlp_insecure"`
}

var defaults = map[string]any{
	"app_name":                   "fern",
	"port":                       3010,
	"log_level":                  "info",
	"pretty_logs":                false,
	"http_server_read_timeout":   "10s",
	"http_server_write_timeout":  "10s",
	"http_server_idle_timeout":   "60s",
	"http_server_shutdown_grace": "10s",
	"startup_max_attempts":       5,

	"db_driver":                  database.DriverPostgres,
	"db_host":                    "localhost",
	"db_port":                    5432,
	"db_user_name":               "",
	"db_password":                "",
	"db_name":                    "fern",
	"db_ssl_mode":                "disable",
	"db_path":                    "fern.db",
	"db_max_open_conns":          25,
	"db_max_idle_conns":          10,
	"db_conn_max_lifetime":       "5m",
	"db_auto_migrate":            true,
	"db_migration_version":       0,
	"db_migration_force":         0,
	"db_migration_auto_rollback": true,

	"store_timeout":         "5s",
	"reconcile_retry_delay": "50ms",
	"utc_offset_hours":      -3,
	"default_client":        artifact.DefaultClient,
	"carrier_cache_size":    256,
	"carrier_cache_ttl":     "5m",

	"artifact_dir":             "artifacts",
	"artifact_format":          artifact.FormatAuto,
	"artifact_category":        artifact.DefaultCategory,
	"artifact_sender":          "",
	"artifact_signature_path":  "",
	"artifact_counter_backend": CounterBackendRedis,
	"artifact_counter_ttl":     "48h",

	"redis_enabled":    true,
	"redis_host":       "localhost",
	"redis_port":       6379,
	"redis_password":   "",
	"redis_db":         0,
	"redis_key_prefix": "fern:",

	"kafka_enabled":       false,
	"kafka_brokers":       []string{"localhost:9092"},
	"kafka_topic":         "fern-task-events",
	"kafka_batch_size":    100,
	"kafka_batch_timeout": "100ms",
	"kafka_required_acks": 1,
	"kafka_compression":   "snappy",

	"imap_host":     "",
	"imap_port":     993,
	"imap_username": "",
	"imap_password": "",
	"imap_tls":      true,
	"imap_mailbox":  "INBOX",
	"imap_limit":    50,

	"tracing_enabled":  false,
	"tracing_exporter": "otlp",
	"otlp_endpoint":    "localhost:4317",
	"otlp_protocol":    "grpc",
	"otlp_insecure":    true,
}

// Load reads envFile into the environment when it exists, then an optional
// YAML file at path, then environment variables named after the upper-cased keys.
// Either path may be empty.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case database.DriverPostgres, database.DriverSQLite:
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DatabaseDriver)
	}
	switch c.ArtifactFormat {
	case artifact.FormatAuto, artifact.FormatNative, artifact.FormatText:
	default:
		return fmt.Errorf("unsupported artifact_format %q", c.ArtifactFormat)
	}
	switch c.ArtifactCounterBackend {
	case CounterBackendStore:
	case CounterBackendRedis:
		if !c.RedisEnabled {
			return fmt.Errorf("artifact_counter_backend %q requires redis_enabled", c.ArtifactCounterBackend)
		}
	default:
		return fmt.Errorf("unsupported artifact_counter_backend %q", c.ArtifactCounterBackend)
	}
	if c.UTCOffsetHours < -12 || c.UTCOffsetHours > 14 {
		return fmt.Errorf("utc_offset_hours %d is out of range", c.UTCOffsetHours)
	}
	return nil
}

// Location is the fixed zone assumed for dates without an explicit offset
func (c *Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.UTCOffsetHours), c.UTCOffsetHours*60*60)
}

func (c *Config) Database() database.Config {
	return database.Config{
		Driver:          c.DatabaseDriver,
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		User:            c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		Path:            c.DatabasePath,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

func (c *Config) Migration() database.MigrationConfig {
	return database.MigrationConfig{
		Version:      uint(max(c.DatabaseMigrationVersion, 0)),
		Force:        c.DatabaseMigrationForce,
		AutoRollback: c.DatabaseMigrationAutoRollback,
	}
}

func (c *Config) Redis() fernredis.Config {
	return fernredis.Config{
		Host:      c.RedisHost,
		Port:      c.RedisPort,
		Password:  c.RedisPassword,
		DB:        c.RedisDB,
		KeyPrefix: c.RedisKeyPrefix,
	}
}

func (c *Config) Producer() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      c.KafkaBrokers,
		Topic:        c.KafkaTopic,
		BatchSize:    c.KafkaBatchSize,
		BatchTimeout: c.KafkaBatchTimeout,
		RequiredAcks: c.KafkaRequiredAcks,
		Compression:  c.KafkaCompression,
	}
}

func (c *Config) Mailbox() mailbox.Config {
	return mailbox.Config{
		Host:     c.IMAPHost,
		Port:     c.IMAPPort,
		Username: c.IMAPUsername,
		Password: c.IMAPPassword,
		TLS:      c.IMAPTLS,
		Mailbox:  c.IMAPMailbox,
		Limit:    c.IMAPLimit,
	}
}

func (c *Config) Artifact() artifact.Config {
	return artifact.Config{
		Dir:      c.ArtifactDir,
		Format:   c.ArtifactFormat,
		Category: c.ArtifactCategory,
		Native: artifact.NativeConfig{
			From:          c.ArtifactSender,
			SignaturePath: c.ArtifactSignaturePath,
		},
		Location: c.Location(),
	}
}

func (c *Config) Tracing() tracing.Config {
	otlp := exporters.DefaultOTLPConfig()
	otlp.Endpoint = c.OTLPEndpoint
	otlp.Protocol = c.OTLPProtocol
	otlp.Insecure = c.OTLPInsecure
	return tracing.Config{
		Enabled:     c.TracingEnabled,
		ServiceName: c.AppName,
		Exporter:    c.TracingExporter,
		OTLP:        otlp,
	}
}
