package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"timeclock/internal/shift"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type BotConfig struct {
	TelegramToken   string
	TelegramDebug   bool
	BaseAdminChatID int64
	DatabaseURL     string
	HTTPAddr        string
	AllowedOrigins  []string
	Timezone        string
	AlertInterval   time.Duration
	CalendarFile    string
	PolicyFile      string
	Policy          shift.Policy

	location *time.Location
}

var instance *BotConfig
var once sync.Once

// GetBotConfig loads the configuration once and exits the process when it
// is unusable.
func GetBotConfig() *BotConfig {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			logrus.Warnf("no .env file loaded: %s", err.Error())
		}

		cfg, err := Load()
		if err != nil {
			logrus.Fatalf("error loading config: %s", err.Error())
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("invalid config: %s", err.Error())
		}
		instance = cfg
	})

	return instance
}

// Load reads the configuration from the environment and the optional
// policy file. It does not validate the token.
func Load() (*BotConfig, error) {
	cfg := &BotConfig{
		TelegramToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramDebug:   getEnvAsBool("TELEGRAM_DEBUG", false),
		BaseAdminChatID: getEnvAsInt("BASE_ADMIN_CHAT_ID", 0),
		DatabaseURL:     getEnv("DATABASE_URL", "timeclock.db"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		AllowedOrigins:  getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}, ","),
		Timezone:        getEnv("TIMEZONE", "Local"),
		AlertInterval:   getEnvAsDuration("ALERT_INTERVAL", 15*time.Minute),
		CalendarFile:    getEnv("CALENDAR_FILE", ""),
		PolicyFile:      getEnv("POLICY_FILE", ""),
		Policy: shift.Policy{
			LongShiftThresholdHours: getEnvAsFloat("LONG_SHIFT_THRESHOLD_HOURS", shift.DefaultLongShiftThresholdHours),
			LeaveDayFixedHours:      getEnvAsFloat("LEAVE_DAY_FIXED_HOURS", shift.DefaultLeaveDayFixedHours),
			LongShiftSkipsLeave:     getEnvAsBool("LONG_SHIFT_SKIPS_LEAVE", false),
		},
	}

	doubleIn, err := shift.ParseDoubleClockInPolicy(getEnv("DOUBLE_CLOCK_IN_POLICY", string(shift.DropStale)))
	if err != nil {
		return nil, err
	}
	cfg.Policy.DoubleClockIn = doubleIn

	if cfg.PolicyFile != "" {
		policy, err := LoadPolicyFile(cfg.PolicyFile, cfg.Policy)
		if err != nil {
			return nil, err
		}
		cfg.Policy = policy
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	return cfg, nil
}

// LoadPolicyFile overlays the YAML policy at path on base. Keys missing
// from the file keep their base values.
func LoadPolicyFile(path string, base shift.Policy) (shift.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read policy file: %w", err)
	}

	policy := base
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return base, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	return policy, nil
}

func (c *BotConfig) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("could not get bot token")
	}
	if c.DatabaseURL == "" {
		return errors.New("could not get db url")
	}
	if c.AlertInterval <= 0 {
		return errors.New("alert interval must be positive")
	}
	return c.Policy.Validate()
}

// Location is the time zone used for day boundaries.
func (c *BotConfig) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsFloat(name string, defaultVal float64) float64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseFloat(valStr, 64); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsSlice(name string, defaultVal []string, sep string) []string {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}

	var vals []string
	for _, v := range strings.Split(valStr, sep) {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return defaultVal
	}
	return vals
}
