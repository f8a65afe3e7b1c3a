package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// TaskBoard sourcing modes.
const (
	TaskSourceDirect   = "direct"
	TaskSourceSnapshot = "snapshot"
)

type Config struct {
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Registry  RegistryConfig  `koanf:"registry"`
	TaskBoard TaskBoardConfig `koanf:"taskboard"`
	Telegram  TelegramConfig  `koanf:"telegram"`
	Monitor   MonitorConfig   `koanf:"monitor"`
	Threat    ThreatConfig    `koanf:"threat"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL         string        `koanf:"url"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	SnapshotTTL time.Duration `koanf:"snapshot_ttl"`
}

// RegistryConfig configures the registry-monitoring collaborator client.
type RegistryConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	APIKey            string        `koanf:"api_key"`
	FeedLimit         int           `koanf:"feed_limit" validate:"gt=0"`
	SubscriptionType  string        `koanf:"subscription_type"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxRetries        uint64        `koanf:"max_retries"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

// TaskBoardConfig configures the project-management collaborator. Mode
// selects the transport once at startup: direct authenticated API polling,
// or reading a snapshot artifact published by an out-of-band job (used when
// board credentials must not reside on the monitoring host).
type TaskBoardConfig struct {
	Mode        string        `koanf:"mode" validate:"oneof=direct snapshot"`
	Account     string        `koanf:"account"`
	APIKey      string        `koanf:"api_key"`
	SnapshotURL string        `koanf:"snapshot_url"`
	Timeout     time.Duration `koanf:"timeout"`
}

// BaseURL is the admin API root for direct mode.
func (c TaskBoardConfig) BaseURL() string {
	return fmt.Sprintf("https://%s.worksection.com/api/admin/v2/", c.Account)
}

type TelegramConfig struct {
	Token        string  `koanf:"token"`
	AdminChatIDs []int64 `koanf:"admin_chat_ids"`
}

// MonitorConfig holds the two fixed-hour schedules and the first-run policy.
type MonitorConfig struct {
	PollHours      []int  `koanf:"poll_hours" validate:"dive,min=0,max=23"`
	SyncHours      []int  `koanf:"sync_hours" validate:"dive,min=0,max=23"`
	InitialRunMode string `koanf:"initial_run_mode" validate:"oneof=index_only notify_all"`
}

type ThreatConfig struct {
	DangerousPlaintiffs []string `koanf:"dangerous_plaintiffs"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Load builds the configuration: defaults, then an optional YAML file, then
// COURTMON_ environment overrides, validated before returning.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Environment: "development",
		LogLevel:    "info",
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL:         "localhost:6379",
			SnapshotTTL: 5 * time.Minute,
		},
		Registry: RegistryConfig{
			BaseURL:           "https://opendatabot.com/api/v3",
			FeedLimit:         100,
			SubscriptionType:  "company",
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		TaskBoard: TaskBoardConfig{
			Mode:    TaskSourceDirect,
			Timeout: 30 * time.Second,
		},
		Monitor: MonitorConfig{
			PollHours:      []int{8, 20},
			SyncHours:      []int{7, 19},
			InitialRunMode: "index_only",
		},
		Metrics: MetricsConfig{
			Addr: ":9102",
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = "configs/config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Double underscore separates sections so multi-word keys stay intact:
	// COURTMON_MONITOR__INITIAL_RUN_MODE -> monitor.initial_run_mode.
	if err := k.Load(env.Provider("COURTMON_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "COURTMON_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
