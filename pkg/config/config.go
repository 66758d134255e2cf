package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Budget     BudgetConfig     `mapstructure:"budget"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Database   DatabaseConfig   `mapstructure:"database"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Log        LogConfig        `mapstructure:"log"`
}

type SimulationConfig struct {
	TickInterval         time.Duration `mapstructure:"tick_interval"`
	RefreshInterval      time.Duration `mapstructure:"refresh_interval"`
	StartupDelay         time.Duration `mapstructure:"startup_delay"`
	Retention            time.Duration `mapstructure:"retention"`
	SampleHours          float64       `mapstructure:"sample_hours"`
	HighPowerThresholdKW float64       `mapstructure:"high_power_threshold_kw"`
	HighPowerProbability float64       `mapstructure:"high_power_probability"`
	BudgetAlertRatio     float64       `mapstructure:"budget_alert_ratio"`
	SeedNotifications    bool          `mapstructure:"seed_notifications"`
}

type BudgetConfig struct {
	// DailyKWh of zero leaves the budget unset.
	DailyKWh   float64 `mapstructure:"daily_kwh"`
	EnergyRate float64 `mapstructure:"energy_rate"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelegramConfig struct {
	Token             string  `mapstructure:"token"`
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type TelemetryConfig struct {
	Buffer int `mapstructure:"buffer"`
}

type ChatConfig struct {
	MaxMessages int           `mapstructure:"max_messages"`
	IdleTTL     time.Duration `mapstructure:"idle_ttl"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q", u.Port())
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Enabled:  true,
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulation.tick_interval", 5*time.Second)
	v.SetDefault("simulation.refresh_interval", time.Minute)
	v.SetDefault("simulation.startup_delay", 2500*time.Millisecond)
	v.SetDefault("simulation.retention", 24*time.Hour)
	v.SetDefault("simulation.sample_hours", 0.25)
	v.SetDefault("simulation.high_power_threshold_kw", 1.5)
	v.SetDefault("simulation.high_power_probability", 0.05)
	v.SetDefault("simulation.budget_alert_ratio", 0.9)
	v.SetDefault("simulation.seed_notifications", true)
	v.SetDefault("budget.daily_kwh", 0)
	v.SetDefault("budget.energy_rate", 20)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.messages_per_second", 1)
	v.SetDefault("telegram.burst", 5)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 150)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "wattguardian")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "wattguardian")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "wattguardian")
	v.SetDefault("telemetry.buffer", 256)
	v.SetDefault("chat.max_messages", 200)
	v.SetDefault("chat.idle_ttl", 24*time.Hour)
	v.SetDefault("log.development", false)
}

// LoadConfig reads path (optional: a missing file leaves the defaults) after
// loading a .env file from the same directory. Environment variables such
// as SIMULATION_TICK_INTERVAL override file values.
func LoadConfig(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	s := c.Simulation
	if s.TickInterval <= 0 || s.RefreshInterval <= 0 || s.StartupDelay < 0 || s.Retention <= 0 {
		errs = append(errs, errors.New("simulation intervals must be positive"))
	}
	if s.SampleHours <= 0 {
		errs = append(errs, errors.New("simulation.sample_hours must be positive"))
	}
	if s.BudgetAlertRatio <= 0 || s.BudgetAlertRatio > 1 {
		errs = append(errs, errors.New("simulation.budget_alert_ratio must be in (0, 1]"))
	}
	if s.HighPowerProbability < 0 || s.HighPowerProbability > 1 {
		errs = append(errs, errors.New("simulation.high_power_probability must be in [0, 1]"))
	}
	if c.Budget.DailyKWh < 0 {
		errs = append(errs, errors.New("budget.daily_kwh must not be negative"))
	}
	if c.Budget.EnergyRate <= 0 {
		errs = append(errs, errors.New("budget.energy_rate must be positive"))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Telegram.Token != "" && (c.Telegram.MessagesPerSecond <= 0 || c.Telegram.Burst <= 0) {
		errs = append(errs, errors.New("telegram rate limit must be positive"))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
