package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	GRPC         GRPCConfig         `yaml:"grpc"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Booking      BookingConfig      `yaml:"booking"`
	Availability AvailabilityConfig `yaml:"availability"`
	Pricing      PricingConfig      `yaml:"pricing"`
	Worker       WorkerConfig       `yaml:"worker"`
	Email        EmailConfig        `yaml:"email"`
	Log          LogConfig          `yaml:"log"`
}

type HTTPConfig struct {
	Address    string          `yaml:"address"`
	SwaggerDir string          `yaml:"swagger_dir"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory". The memory store is single-process only.
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	HoldTTLMinutes          int    `yaml:"hold_ttl_minutes"`
	NumberPrefix            string `yaml:"number_prefix"`
	CancellationDeadlineHrs int    `yaml:"cancellation_deadline_hours"`
	MaxDailyCapacity        int    `yaml:"max_daily_capacity"`
	FleetCacheTTLSeconds    int    `yaml:"fleet_cache_ttl_seconds"`
	Timezone                string `yaml:"timezone"`
}

type AvailabilityConfig struct {
	OpeningTime      string  `yaml:"opening_time"`
	ClosingTime      string  `yaml:"closing_time"`
	SlotMinutes      int     `yaml:"slot_minutes"`
	BufferMinutes    int     `yaml:"buffer_minutes"`
	LeadTimeHours    int     `yaml:"lead_time_hours"`
	HorizonDays      int     `yaml:"horizon_days"`
	MinDurationHours float64 `yaml:"min_duration_hours"`
	MaxDurationHours float64 `yaml:"max_duration_hours"`
	RankingPolicy    string  `yaml:"ranking_policy"`
}

type PricingConfig struct {
	HourlyRateCents int64   `yaml:"hourly_rate_cents"`
	PerGuestCents   int64   `yaml:"per_guest_cents"`
	TaxRate         float64 `yaml:"tax_rate"`
	DepositRate     float64 `yaml:"deposit_rate"`
}

type WorkerConfig struct {
	HoldSweepMinutes int `yaml:"hold_sweep_minutes"`
}

// EmailConfig configures the SMTP relay. With an empty host the worker only
// logs the notifications it would send.
type EmailConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.HTTP.RateLimit.RequestsPerMinute == 0 {
		c.HTTP.RateLimit.RequestsPerMinute = 200
	}
	if c.HTTP.RateLimit.Burst == 0 {
		c.HTTP.RateLimit.Burst = 50
	}
	if c.Booking.HoldTTLMinutes == 0 {
		c.Booking.HoldTTLMinutes = 15
	}
	if c.Booking.NumberPrefix == "" {
		c.Booking.NumberPrefix = "TB"
	}
	if c.Booking.CancellationDeadlineHrs == 0 {
		c.Booking.CancellationDeadlineHrs = 24
	}
	if c.Booking.MaxDailyCapacity == 0 {
		c.Booking.MaxDailyCapacity = 50
	}
	if c.Booking.FleetCacheTTLSeconds == 0 {
		c.Booking.FleetCacheTTLSeconds = 60
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "UTC"
	}
	a := &c.Availability
	if a.OpeningTime == "" {
		a.OpeningTime = "07:00"
	}
	if a.ClosingTime == "" {
		a.ClosingTime = "20:00"
	}
	if a.SlotMinutes == 0 {
		a.SlotMinutes = 30
	}
	if a.LeadTimeHours == 0 {
		a.LeadTimeHours = 48
	}
	if a.HorizonDays == 0 {
		a.HorizonDays = 120
	}
	if a.MinDurationHours == 0 {
		a.MinDurationHours = 2
	}
	if a.MaxDurationHours == 0 {
		a.MaxDurationHours = 10
	}
	if a.RankingPolicy == "" {
		a.RankingPolicy = "best_fit"
	}
	if c.Worker.HoldSweepMinutes == 0 {
		c.Worker.HoldSweepMinutes = 1
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.From == "" {
		c.Email.From = "bookings@example.com"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "memory" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Availability.MinDurationHours > c.Availability.MaxDurationHours {
		return fmt.Errorf("availability: min_duration_hours exceeds max_duration_hours")
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("booking: invalid timezone %q: %w", c.Booking.Timezone, err)
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (b BookingConfig) HoldTTL() time.Duration {
	return time.Duration(b.HoldTTLMinutes) * time.Minute
}

func (b BookingConfig) CancellationDeadline() time.Duration {
	return time.Duration(b.CancellationDeadlineHrs) * time.Hour
}

func (b BookingConfig) FleetCacheTTL() time.Duration {
	return time.Duration(b.FleetCacheTTLSeconds) * time.Second
}

func (a AvailabilityConfig) LeadTime() time.Duration {
	return time.Duration(a.LeadTimeHours) * time.Hour
}

func (w WorkerConfig) SweepInterval() time.Duration {
	return time.Duration(w.HoldSweepMinutes) * time.Minute
}
