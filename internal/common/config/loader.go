package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml
// and the environment, then applies defaults and validates.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile reads a single YAML file.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars resolves ${VAR} references inside string values. Unset
// variables expand to the empty string; bare $words are left alone.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok || !strings.Contains(s, "${") {
			continue
		}
		v.Set(key, envRef.ReplaceAllStringFunc(s, func(ref string) string {
			return os.Getenv(envRef.FindStringSubmatch(ref)[1])
		}))
	}
}

// overrideFromEnv fills secrets that are normally kept out of YAML.
func overrideFromEnv(cfg *Config) {
	envString(&cfg.Sheets.APIKey, "SHEETS_API_KEY")
	envString(&cfg.Sheets.SpreadsheetID, "SHEETS_SPREADSHEET_ID")
	envString(&cfg.Sheets.CredentialsFile, "SHEETS_CREDENTIALS_FILE")
	envString(&cfg.Database.Supabase.URL, "SUPABASE_DB_URL")
	envString(&cfg.Database.Supabase.User, "DB_USER")
	envString(&cfg.Database.Supabase.Password, "DB_PASSWORD")
	envString(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
	envString(&cfg.Notifications.AdminAlerts.TopicARN, "SNS_TOPIC_ARN")
}

func envString(dst *string, name string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func defaultInt(dst *int, val int) {
	if *dst == 0 {
		*dst = val
	}
}

func defaultString(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}

func applyDefaults(cfg *Config) {
	defaultString(&cfg.App.Name, "candidate-portal")
	defaultString(&cfg.App.Environment, "development")

	defaultInt(&cfg.Camunda.MaxJobsActive, 10)
	defaultInt(&cfg.Camunda.Timeout, 30000)
	defaultInt(&cfg.Camunda.RequestTimeout, 30000)

	sb := &cfg.Database.Supabase
	defaultInt(&sb.Port, 5432)
	defaultInt(&sb.MaxConnections, 10)
	defaultInt(&sb.MaxIdle, 2)
	defaultString(&sb.SSLMode, "require")
	defaultString(&sb.Table, "candidates")
	defaultString(&sb.ActivityTable, "activity_events")

	defaultString(&cfg.Database.Elasticsearch.Index, "candidates")
	defaultString(&cfg.Database.Redis.KeyPrefix, "portal:")

	defaultString(&cfg.Sheets.Range, "Candidates!A2:L")
	defaultString(&cfg.Sheets.AppendRange, "Candidates!A:L")
	defaultString(&cfg.Sheets.APIKeyStoreKey, "config:sheets_api_key")

	r := &cfg.Resilience
	defaultInt(&r.FreshTTL, 60000)
	defaultInt(&r.StaleWarnAfter, 24*60*60*1000)
	defaultInt(&r.FetchMinInterval, 500)
	defaultInt(&r.AuthMinInterval, 2000)
	defaultInt(&r.FailureThreshold, 3)
	defaultInt(&r.FetchRetries, 3)
	defaultInt(&r.FetchBaseDelay, 1000)
	defaultInt(&r.AuthLoadRetries, 3)
	defaultInt(&r.AuthLoadBaseDelay, 1000)
	defaultInt(&r.AuthInitTimeout, 10000)
	defaultInt(&r.AuthStateMaxAge, 30*60*1000)
	defaultInt(&r.NoticeCooldown, 5*60*1000)
	defaultInt(&r.LoadTimeout, 30000)

	defaultString(&cfg.Activity.QueueKey, "activity:queue")
	defaultString(&cfg.Activity.SheetRange, "Activity!A:D")

	defaultString(&cfg.Connectivity.ProbeURL, "https://sheets.googleapis.com/$discovery/rest?version=v4")
	defaultInt(&cfg.Connectivity.Interval, 15000)
	defaultInt(&cfg.Connectivity.ProbeTimeout, 5000)

	defaultInt(&cfg.HTTP.Port, 8080)
	defaultInt(&cfg.HTTP.ReadTimeout, 15000)
	defaultInt(&cfg.HTTP.WriteTimeout, 30000)

	defaultString(&cfg.Notifications.Email.Subject, "Requested candidate resume")
	defaultString(&cfg.Notifications.AWS.Region, "us-east-1")

	defaultString(&cfg.Logging.Level, "info")
	defaultString(&cfg.Logging.Format, "json")

	for key, w := range cfg.Workers {
		defaultInt(&w.MaxJobsActive, 5)
		defaultInt(&w.Timeout, 30000)
		defaultInt(&w.MaxRetries, 3)
		cfg.Workers[key] = w
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Database.Supabase.Enabled && !cfg.Database.Supabase.Configured() {
		return fmt.Errorf("database.supabase.url or host/database is required when supabase is enabled")
	}
	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when elasticsearch is enabled")
	}
	if cfg.Resilience.FailureThreshold < 1 {
		return fmt.Errorf("resilience.failure_threshold must be positive")
	}
	if cfg.Notifications.AdminAlerts.Enabled && cfg.Notifications.AdminAlerts.TopicARN == "" {
		return fmt.Errorf("notifications.admin_alerts.topic_arn is required when admin alerts are enabled")
	}
	return nil
}

// GetDuration converts a millisecond setting to a time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if w, ok := cfg.Workers[workerName]; ok {
		return w
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if w, ok := cfg.Workers[workerName]; ok {
		return w.Enabled
	}
	return true
}
