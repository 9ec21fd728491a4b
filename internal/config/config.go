package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sandeepkv93/streakly/internal/model"
)

const EnvPrefix = "STREAKLY"

type Config struct {
	Storage       StorageConfig
	Timezone      string
	Logger        LoggerConfig
	Reminders     RemindersConfig
	Alarms        AlarmsConfig
	Notifications NotificationsConfig
	Scheduler     SchedulerConfig
	HTTP          HTTPConfig
	Rollover      RolloverConfig
}

type StorageConfig struct {
	Path string
}

type LoggerConfig struct {
	Level        string
	Mode         string
	Encoding     string
	ColorEnabled bool
}

// RemindersConfig holds the fixed daily digest times as HH:MM.
type RemindersConfig struct {
	Morning       string
	Night         string
	Warning       string
	DailyCooldown time.Duration
	LookaheadDays int
}

type AlarmsConfig struct {
	PollInterval    time.Duration
	FiredCacheSize  int
	FiredCacheTTL   time.Duration
	RequireNotifier bool
	MaxAttempts     int
}

type NotificationsConfig struct {
	Desktop       bool
	RatePerMinute int
}

type SchedulerConfig struct {
	Buffer int
}

type HTTPConfig struct {
	Addr string
	Mode string
}

type RolloverConfig struct {
	CheckInterval time.Duration
}

// Load reads streakly.yaml from path (or ./, ./config and $HOME/.config/streakly
// when path is empty) and overlays STREAKLY_* environment variables. A missing
// config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("streakly")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.config/streakly")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	cfg.Storage.Path = v.GetString("storage.path")
	cfg.Timezone = v.GetString("timezone")

	cfg.Logger.Level = v.GetString("logger.level")
	cfg.Logger.Mode = v.GetString("logger.mode")
	cfg.Logger.Encoding = v.GetString("logger.encoding")
	cfg.Logger.ColorEnabled = v.GetBool("logger.color_enabled")

	cfg.Reminders.Morning = v.GetString("reminders.morning")
	cfg.Reminders.Night = v.GetString("reminders.night")
	cfg.Reminders.Warning = v.GetString("reminders.warning")
	cfg.Reminders.DailyCooldown = v.GetDuration("reminders.daily_cooldown")
	cfg.Reminders.LookaheadDays = v.GetInt("reminders.lookahead_days")

	cfg.Alarms.PollInterval = v.GetDuration("alarms.poll_interval")
	cfg.Alarms.FiredCacheSize = v.GetInt("alarms.fired_cache_size")
	cfg.Alarms.FiredCacheTTL = v.GetDuration("alarms.fired_cache_ttl")
	cfg.Alarms.RequireNotifier = v.GetBool("alarms.require_notifier")
	cfg.Alarms.MaxAttempts = v.GetInt("alarms.max_attempts")

	cfg.Notifications.Desktop = v.GetBool("notifications.desktop")
	cfg.Notifications.RatePerMinute = v.GetInt("notifications.rate_per_minute")

	cfg.Scheduler.Buffer = v.GetInt("scheduler.buffer")

	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.HTTP.Mode = v.GetString("http.mode")

	cfg.Rollover.CheckInterval = v.GetDuration("rollover.check_interval")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.path", "streakly.db")
	v.SetDefault("timezone", "Local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", "production")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.color_enabled", false)

	v.SetDefault("reminders.morning", "08:00")
	v.SetDefault("reminders.night", "21:00")
	v.SetDefault("reminders.warning", "22:00")
	v.SetDefault("reminders.daily_cooldown", time.Hour)
	v.SetDefault("reminders.lookahead_days", 62)

	v.SetDefault("alarms.poll_interval", 5*time.Second)
	v.SetDefault("alarms.fired_cache_size", 256)
	v.SetDefault("alarms.fired_cache_ttl", 36*time.Hour)
	v.SetDefault("alarms.max_attempts", 3)
	v.SetDefault("alarms.require_notifier", false)

	v.SetDefault("notifications.desktop", false)
	v.SetDefault("notifications.rate_per_minute", 20)

	v.SetDefault("scheduler.buffer", 64)

	v.SetDefault("http.addr", "127.0.0.1:8787")
	v.SetDefault("http.mode", "release")

	v.SetDefault("rollover.check_interval", time.Minute)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("config: storage.path is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for name, raw := range map[string]string{
		"reminders.morning": c.Reminders.Morning,
		"reminders.night":   c.Reminders.Night,
		"reminders.warning": c.Reminders.Warning,
	} {
		if _, err := model.ParseTimeOfDay(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if c.Reminders.LookaheadDays <= 0 {
		return fmt.Errorf("config: reminders.lookahead_days must be positive, got %d", c.Reminders.LookaheadDays)
	}
	if c.Alarms.PollInterval <= 0 {
		return fmt.Errorf("config: alarms.poll_interval must be positive, got %s", c.Alarms.PollInterval)
	}
	if c.Rollover.CheckInterval <= 0 {
		return fmt.Errorf("config: rollover.check_interval must be positive, got %s", c.Rollover.CheckInterval)
	}
	return nil
}

// Location resolves Timezone; "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DailyTimes parses the three digest times. Call after Validate.
func (c *Config) DailyTimes() (morning, night, warning model.TimeOfDay) {
	morning, _ = model.ParseTimeOfDay(c.Reminders.Morning)
	night, _ = model.ParseTimeOfDay(c.Reminders.Night)
	warning, _ = model.ParseTimeOfDay(c.Reminders.Warning)
	return morning, night, warning
}
