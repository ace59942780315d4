// Package config loads service configuration from an optional YAML file
// and ROUTE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"
	"visit-route-engine/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "ROUTE"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      obs.LogConfig  `mapstructure:"log"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Provider ProviderConfig `mapstructure:"provider"`
	Places   PlacesConfig   `mapstructure:"places"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"                validate:"min=1,max=65535"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"       validate:"min=2s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
}

// RequestTimeout bounds a planning call so its response can still be
// written before WriteTimeout closes the connection.
func (s ServerConfig) RequestTimeout() time.Duration {
	return s.WriteTimeout - time.Second
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SeedPath        string        `mapstructure:"seed_path"`
}

// EngineConfig mirrors services.Options in configuration-friendly units.
type EngineConfig struct {
	WorkdayStart        string        `mapstructure:"workday_start"         validate:"clock"`
	WorkdayEnd          string        `mapstructure:"workday_end"           validate:"clock"`
	LunchDuration       time.Duration `mapstructure:"lunch_duration"        validate:"min=0"`
	LunchWindowStart    string        `mapstructure:"lunch_window_start"    validate:"clock"`
	LunchWindowEnd      string        `mapstructure:"lunch_window_end"      validate:"clock"`
	TravelBuffer        time.Duration `mapstructure:"travel_buffer"         validate:"min=0"`
	ClosingMargin       time.Duration `mapstructure:"closing_margin"        validate:"min=0"`
	MaxCompressionRatio float64       `mapstructure:"max_compression_ratio" validate:"min=0,lt=1"`
	MaxPointsPerRoute   int           `mapstructure:"max_points_per_route"  validate:"min=1"`
	ExactThreshold      int           `mapstructure:"exact_threshold"       validate:"min=1,max=10"`
	PopulationSize      int           `mapstructure:"population_size"       validate:"min=4"`
	Generations         int           `mapstructure:"generations"           validate:"min=1"`
	MutationRate        float64       `mapstructure:"mutation_rate"         validate:"min=0,max=1"`
	SearchBudget        time.Duration `mapstructure:"search_budget"`
	TwoOptPasses        int           `mapstructure:"two_opt_passes"        validate:"min=0"`
	Seed                int64         `mapstructure:"seed"`
	Profile             string        `mapstructure:"profile"               validate:"oneof=balanced distance_first time_first priority_first"`
	MaxPriorityTier     int           `mapstructure:"max_priority_tier"     validate:"min=1"`
	AverageSpeedKmh     float64       `mapstructure:"average_speed_kmh"     validate:"gt=0"`
	Penalties           PenaltyConfig `mapstructure:"penalties"`
}

type PenaltyConfig struct {
	PriorityUnit        float64 `mapstructure:"priority_unit"        validate:"min=0"`
	EarlyPerMinute      float64 `mapstructure:"early_per_minute"     validate:"min=0"`
	LatePerMinute       float64 `mapstructure:"late_per_minute"      validate:"gtefield=EarlyPerMinute"`
	ClosedDay           float64 `mapstructure:"closed_day"           validate:"min=0"`
	VerifiedMultiplier  float64 `mapstructure:"verified_multiplier"  validate:"gtefield=EstimatedMultiplier"`
	EstimatedMultiplier float64 `mapstructure:"estimated_multiplier" validate:"min=0"`
}

type ProviderConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	BaseURL            string        `mapstructure:"base_url"             validate:"required_if=Enabled true,omitempty,url"`
	APIKey             string        `mapstructure:"api_key"              validate:"required_if=Enabled true"`
	TrafficModel       string        `mapstructure:"traffic_model"        validate:"oneof=best_guess pessimistic optimistic"`
	Timeout            time.Duration `mapstructure:"timeout"`
	RatePerSecond      float64       `mapstructure:"rate_per_second"      validate:"min=0"`
	Burst              int           `mapstructure:"burst"                validate:"min=1"`
	MaxConcurrentCalls int           `mapstructure:"max_concurrent_calls" validate:"min=1"`
	MaxOrigins         int           `mapstructure:"max_origins"          validate:"min=1"`
	MaxDestinations    int           `mapstructure:"max_destinations"     validate:"min=1"`
	TimeBucket         time.Duration `mapstructure:"time_bucket"`
	Retries            int           `mapstructure:"retries"              validate:"min=1"`
	BreakerFailures    uint32        `mapstructure:"breaker_failures"     validate:"min=1"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
}

type PlacesConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"    validate:"required_if=Enabled true,omitempty,url"`
	APIKey      string        `mapstructure:"api_key"     validate:"required_if=Enabled true"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency" validate:"min=1"`
}

type CacheConfig struct {
	MaxEntries    int           `mapstructure:"max_entries"    validate:"min=1"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"       validate:"min=0"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`
	Postgres      bool          `mapstructure:"postgres"`
}

func setDefaults(v *viper.Viper) {
	d := services.DefaultOptions()
	t := services.DefaultTravelOptions()
	lc := obs.DefaultLogConfig()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.seed_path", "data/seeds/points.json")

	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.output", lc.Output)

	v.SetDefault("engine.workday_start", d.WorkdayStart.String())
	v.SetDefault("engine.workday_end", d.WorkdayEnd.String())
	v.SetDefault("engine.lunch_duration", d.LunchDuration)
	v.SetDefault("engine.lunch_window_start", d.LunchWindowStart.String())
	v.SetDefault("engine.lunch_window_end", d.LunchWindowEnd.String())
	v.SetDefault("engine.travel_buffer", d.TravelBuffer)
	v.SetDefault("engine.closing_margin", d.ClosingMargin)
	v.SetDefault("engine.max_compression_ratio", d.MaxCompressionRatio)
	v.SetDefault("engine.max_points_per_route", d.MaxPointsPerRoute)
	v.SetDefault("engine.exact_threshold", d.ExactThreshold)
	v.SetDefault("engine.population_size", d.PopulationSize)
	v.SetDefault("engine.generations", d.Generations)
	v.SetDefault("engine.mutation_rate", d.MutationRate)
	v.SetDefault("engine.search_budget", d.SearchBudget)
	v.SetDefault("engine.two_opt_passes", d.TwoOptPasses)
	v.SetDefault("engine.seed", d.Seed)
	v.SetDefault("engine.profile", string(d.Profile))
	v.SetDefault("engine.max_priority_tier", d.MaxPriorityTier)
	v.SetDefault("engine.average_speed_kmh", 30.0)
	v.SetDefault("engine.penalties.priority_unit", d.Penalties.PriorityUnit)
	v.SetDefault("engine.penalties.early_per_minute", d.Penalties.EarlyPerMinute)
	v.SetDefault("engine.penalties.late_per_minute", d.Penalties.LatePerMinute)
	v.SetDefault("engine.penalties.closed_day", d.Penalties.ClosedDay)
	v.SetDefault("engine.penalties.verified_multiplier", d.Penalties.VerifiedMultiplier)
	v.SetDefault("engine.penalties.estimated_multiplier", d.Penalties.EstimatedMultiplier)

	v.SetDefault("provider.enabled", false)
	v.SetDefault("provider.base_url", "https://maps.googleapis.com")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.traffic_model", "best_guess")
	v.SetDefault("provider.timeout", t.CallTimeout)
	v.SetDefault("provider.rate_per_second", t.RatePerSecond)
	v.SetDefault("provider.burst", t.Burst)
	v.SetDefault("provider.max_concurrent_calls", t.MaxConcurrentCalls)
	v.SetDefault("provider.max_origins", 25)
	v.SetDefault("provider.max_destinations", 25)
	v.SetDefault("provider.time_bucket", t.TimeBucket)
	v.SetDefault("provider.retries", 3)
	v.SetDefault("provider.breaker_failures", t.BreakerFailures)
	v.SetDefault("provider.breaker_open_timeout", t.BreakerOpenTimeout)

	v.SetDefault("places.enabled", false)
	v.SetDefault("places.base_url", "https://maps.googleapis.com")
	v.SetDefault("places.api_key", "")
	v.SetDefault("places.timeout", 3*time.Second)
	v.SetDefault("places.concurrency", 4)

	v.SetDefault("cache.max_entries", 20000)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_ttl", 6*time.Hour)
	v.SetDefault("cache.postgres", false)
}

// Load reads defaults, then the YAML file at path (if any), then ROUTE_*
// environment variables such as ROUTE_ENGINE_TRAVEL_BUFFER=5m.
// DATABASE_URL is honoured for database.url as well.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", envPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and cross-field engine constraints.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseClock(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("register clock validation: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := cfg.EngineOptions(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// EngineOptions converts the engine section to services.Options.
func (c *Config) EngineOptions() (services.Options, error) {
	e := c.Engine
	var errs []error
	clock := func(name, s string) domain.Clock {
		v, err := domain.ParseClock(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("engine.%s: %w", name, err))
		}
		return v
	}

	opts := services.Options{
		WorkdayStart:        clock("workday_start", e.WorkdayStart),
		WorkdayEnd:          clock("workday_end", e.WorkdayEnd),
		LunchDuration:       e.LunchDuration,
		LunchWindowStart:    clock("lunch_window_start", e.LunchWindowStart),
		LunchWindowEnd:      clock("lunch_window_end", e.LunchWindowEnd),
		TravelBuffer:        e.TravelBuffer,
		ClosingMargin:       e.ClosingMargin,
		MaxCompressionRatio: e.MaxCompressionRatio,
		MaxPointsPerRoute:   e.MaxPointsPerRoute,
		ExactThreshold:      e.ExactThreshold,
		PopulationSize:      e.PopulationSize,
		Generations:         e.Generations,
		MutationRate:        e.MutationRate,
		SearchBudget:        e.SearchBudget,
		TwoOptPasses:        e.TwoOptPasses,
		Seed:                e.Seed,
		Profile:             services.Profile(e.Profile),
		MaxPriorityTier:     e.MaxPriorityTier,
		Penalties: services.PenaltyConfig{
			PriorityUnit:        e.Penalties.PriorityUnit,
			EarlyPerMinute:      e.Penalties.EarlyPerMinute,
			LatePerMinute:       e.Penalties.LatePerMinute,
			ClosedDay:           e.Penalties.ClosedDay,
			VerifiedMultiplier:  e.Penalties.VerifiedMultiplier,
			EstimatedMultiplier: e.Penalties.EstimatedMultiplier,
		},
	}
	if len(errs) > 0 {
		return services.Options{}, errors.Join(errs...)
	}
	if err := opts.Validate(); err != nil {
		return services.Options{}, err
	}
	return opts, nil
}

// TravelOptions converts the provider section to services.TravelOptions.
func (c *Config) TravelOptions() services.TravelOptions {
	p := c.Provider
	return services.TravelOptions{
		TimeBucket:         p.TimeBucket,
		CallTimeout:        p.Timeout,
		MaxConcurrentCalls: p.MaxConcurrentCalls,
		RatePerSecond:      p.RatePerSecond,
		Burst:              p.Burst,
		BreakerFailures:    p.BreakerFailures,
		BreakerOpenTimeout: p.BreakerOpenTimeout,
	}
}
