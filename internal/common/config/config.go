package config

import (
	"fmt"
	"strings"

	apperrors "candidate-portal/internal/common/errors"
)

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Sheets        SheetsConfig            `mapstructure:"sheets"`
	Resilience    ResilienceConfig        `mapstructure:"resilience"`
	Activity      ActivityConfig          `mapstructure:"activity"`
	Connectivity  ConnectivityConfig      `mapstructure:"connectivity"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	HTTP          HTTPConfig              `mapstructure:"http"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	TLS            bool   `mapstructure:"tls"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Supabase      PostgresConfig      `mapstructure:"supabase"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

// PostgresConfig describes the secondary candidate store. URL wins over the
// discrete fields when set.
type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	Table          string `mapstructure:"table"`
	ActivityTable  string `mapstructure:"activity_table"`
}

func (p PostgresConfig) GetDSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Configured reports whether enough is set to open a connection.
func (p PostgresConfig) Configured() bool {
	return p.Enabled && (p.URL != "" || (p.Host != "" && p.Database != ""))
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SheetsConfig holds the primary store coordinates. The read API key is
// normally provisioned into the KV store under APIKeyStoreKey; APIKey seeds it.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Range           string `mapstructure:"range"`
	AppendRange     string `mapstructure:"append_range"`
	APIKey          string `mapstructure:"api_key"`
	APIKeyStoreKey  string `mapstructure:"api_key_store_key"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// Validate checks the settings required before any remote read.
func (s SheetsConfig) Validate() error {
	if strings.TrimSpace(s.SpreadsheetID) == "" {
		return apperrors.NewConfigMissingError("sheets.spreadsheet_id", "set SHEETS_SPREADSHEET_ID")
	}
	if strings.TrimSpace(s.Range) == "" {
		return apperrors.NewConfigMissingError("sheets.range", "set sheets.range, e.g. Candidates!A2:L")
	}
	return nil
}

// CanWrite reports whether service-account credentials for appends exist.
func (s SheetsConfig) CanWrite() bool {
	return strings.TrimSpace(s.CredentialsFile) != ""
}

// ResilienceConfig durations are milliseconds.
type ResilienceConfig struct {
	FreshTTL          int `mapstructure:"fresh_ttl"`
	StaleWarnAfter    int `mapstructure:"stale_warn_after"`
	FetchMinInterval  int `mapstructure:"fetch_min_interval"`
	AuthMinInterval   int `mapstructure:"auth_min_interval"`
	FailureThreshold  int `mapstructure:"failure_threshold"`
	FetchRetries      int `mapstructure:"fetch_retries"`
	FetchBaseDelay    int `mapstructure:"fetch_base_delay"`
	AuthLoadRetries   int `mapstructure:"auth_load_retries"`
	AuthLoadBaseDelay int `mapstructure:"auth_load_base_delay"`
	AuthInitTimeout   int `mapstructure:"auth_init_timeout"`
	AuthStateMaxAge   int `mapstructure:"auth_state_max_age"`
	NoticeCooldown    int `mapstructure:"notice_cooldown"`
	LoadTimeout       int `mapstructure:"load_timeout"`
}

// ActivityConfig selects where tracked events go. The Postgres table is used
// when the secondary store is enabled, otherwise SheetRange on the primary.
type ActivityConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	QueueKey   string `mapstructure:"queue_key"`
	SheetRange string `mapstructure:"sheet_range"`
}

type ConnectivityConfig struct {
	ProbeURL     string `mapstructure:"probe_url"`
	Interval     int    `mapstructure:"interval"`      // milliseconds
	ProbeTimeout int    `mapstructure:"probe_timeout"` // milliseconds
}

// Schedule returns the cron spec for the probe interval.
func (c ConnectivityConfig) Schedule() string {
	return fmt.Sprintf("@every %s", GetDuration(c.Interval))
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type HTTPConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int `mapstructure:"write_timeout"` // milliseconds
}

type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		Subject   string `mapstructure:"subject"`
	} `mapstructure:"email"`
	AdminAlerts struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"admin_alerts"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
