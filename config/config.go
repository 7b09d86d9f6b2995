package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Rabbit  RabbitConfig
	Booking BookingConfig
	Log     LogConfig
}

type AppConfig struct {
	Port        string
	Env         string
	CORSOrigins []string
}

type DBConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

// DSN returns the keyword/value connection string used by gorm
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

// URL returns the pgx5:// url used by golang-migrate
func (c DBConfig) URL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

type RabbitConfig struct {
	URL      string
	Exchange string
}

type LogConfig struct {
	Level string
}

// ServiceWindow is a bookable band of the day in minutes after midnight, [Start, End)
type ServiceWindow struct {
	Start int
	End   int
}

type BookingConfig struct {
	Location             *time.Location
	LeadTime             time.Duration
	Windows              []ServiceWindow
	SlotInterval         time.Duration
	ExcludedTimes        []int
	MaxAdvanceDays       int
	ClaimStrategy        string
	ClaimTimeout         time.Duration
	ClaimMaxRetries      int
	LockTimeout          time.Duration
	PollInterval         time.Duration
	AvailabilityCacheTTL time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_CORS_ORIGINS", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "hospital_booking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_ACCESS_EXPIRY", "15m")

	v.SetDefault("BOOKING_EXCHANGE", "booking.events")

	v.SetDefault("FACILITY_TIMEZONE", "UTC")
	v.SetDefault("BOOKING_LEAD_TIME", "4m")
	v.SetDefault("BOOKING_WINDOWS", "09:00-12:00,17:00-20:00")
	v.SetDefault("BOOKING_SLOT_INTERVAL", "30m")
	v.SetDefault("BOOKING_EXCLUDED_TIMES", "")
	v.SetDefault("BOOKING_MAX_ADVANCE_DAYS", 90)
	v.SetDefault("BOOKING_CLAIM_STRATEGY", "optimistic")
	v.SetDefault("BOOKING_CLAIM_TIMEOUT", "5s")
	v.SetDefault("BOOKING_CLAIM_MAX_RETRIES", 3)
	v.SetDefault("BOOKING_LOCK_TIMEOUT", "3s")
	v.SetDefault("BOOKING_POLL_INTERVAL", "10s")
	v.SetDefault("BOOKING_AVAILABILITY_CACHE_TTL", "2s")

	v.SetDefault("LOG_LEVEL", "info")
}

// LoadConfig reads the optional .env file and the environment.
func LoadConfig() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, envFile string) (*Config, error) {
	setDefaults(v)
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	booking, err := loadBookingConfig(v)
	if err != nil {
		return nil, err
	}

	accessExpiry, err := time.ParseDuration(v.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	config := &Config{
		App: AppConfig{
			Port:        v.GetString("APP_PORT"),
			Env:         v.GetString("APP_ENV"),
			CORSOrigins: splitList(v.GetString("APP_CORS_ORIGINS")),
		},
		DB: DBConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET"),
			AccessExpiry: accessExpiry,
		},
		Rabbit: RabbitConfig{
			URL:      v.GetString("RABBIT_URL"),
			Exchange: v.GetString("BOOKING_EXCHANGE"),
		},
		Booking: *booking,
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	return config, nil
}

func loadBookingConfig(v *viper.Viper) (*BookingConfig, error) {
	loc, err := time.LoadLocation(v.GetString("FACILITY_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("FACILITY_TIMEZONE: %w", err)
	}

	windows, err := ParseServiceWindows(v.GetString("BOOKING_WINDOWS"))
	if err != nil {
		return nil, fmt.Errorf("BOOKING_WINDOWS: %w", err)
	}

	excluded, err := ParseClockList(v.GetString("BOOKING_EXCLUDED_TIMES"))
	if err != nil {
		return nil, fmt.Errorf("BOOKING_EXCLUDED_TIMES: %w", err)
	}

	cfg := &BookingConfig{
		Location:        loc,
		Windows:         windows,
		ExcludedTimes:   excluded,
		MaxAdvanceDays:  v.GetInt("BOOKING_MAX_ADVANCE_DAYS"),
		ClaimStrategy:   strings.ToLower(v.GetString("BOOKING_CLAIM_STRATEGY")),
		ClaimMaxRetries: v.GetInt("BOOKING_CLAIM_MAX_RETRIES"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"BOOKING_LEAD_TIME", &cfg.LeadTime},
		{"BOOKING_SLOT_INTERVAL", &cfg.SlotInterval},
		{"BOOKING_CLAIM_TIMEOUT", &cfg.ClaimTimeout},
		{"BOOKING_LOCK_TIMEOUT", &cfg.LockTimeout},
		{"BOOKING_POLL_INTERVAL", &cfg.PollInterval},
		{"BOOKING_AVAILABILITY_CACHE_TTL", &cfg.AvailabilityCacheTTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("%s must not be negative", d.key)
		}
		*d.dst = parsed
	}

	if cfg.SlotInterval%time.Minute != 0 {
		return nil, errors.New("BOOKING_SLOT_INTERVAL must be a whole number of minutes")
	}

	return cfg, nil
}

// ParseServiceWindows parses "09:00-12:00,17:00-20:00" into windows sorted by
// start. An empty string yields no windows.
func ParseServiceWindows(raw string) ([]ServiceWindow, error) {
	var windows []ServiceWindow
	for _, part := range splitList(raw) {
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("window %q must look like 09:00-12:00", part)
		}
		start, err := parseClock(bounds[0])
		if err != nil {
			return nil, err
		}
		end, err := parseClock(bounds[1])
		if err != nil {
			return nil, err
		}
		if end <= start {
			return nil, fmt.Errorf("window %q ends before it starts", part)
		}
		windows = append(windows, ServiceWindow{Start: start, End: end})
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
	return windows, nil
}

// ParseClockList parses "13:00,14:30" into minutes after midnight.
func ParseClockList(raw string) ([]int, error) {
	var minutes []int
	for _, part := range splitList(raw) {
		m, err := parseClock(part)
		if err != nil {
			return nil, err
		}
		minutes = append(minutes, m)
	}
	return minutes, nil
}

func parseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	// 24:00 closes a window that runs until midnight.
	if raw == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func splitList(raw string) []string {
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
