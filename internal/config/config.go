package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/tmglimp/commas/internal/ctd"
	"github.com/tmglimp/commas/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig                `mapstructure:"app"`
	Logging   logging.Config           `mapstructure:"logging"`
	Broker    BrokerConfig             `mapstructure:"broker"`
	Pipeline  PipelineConfig           `mapstructure:"pipeline"`
	RateLimit RateLimitConfig          `mapstructure:"ratelimit"`
	Orders    OrdersConfig             `mapstructure:"orders"`
	Products  map[string]ProductConfig `mapstructure:"products"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// BrokerConfig covers Client Portal gateway connectivity.
type BrokerConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AccountID      string        `mapstructure:"account_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Insecure       bool          `mapstructure:"insecure"`
}

// PipelineConfig governs the refresh and trading cadence.
type PipelineConfig struct {
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	LivenessInterval time.Duration `mapstructure:"liveness_interval"`
	Symbols          []string      `mapstructure:"symbols"`
	UniverseSize     int           `mapstructure:"universe_size"`
	Leverage         float64       `mapstructure:"leverage"`
	TopPairs         int           `mapstructure:"top_pairs"`
}

// RateLimitConfig tunes the gateway token bucket.
type RateLimitConfig struct {
	Capacity     int           `mapstructure:"capacity"`
	RefillAmount int           `mapstructure:"refill_amount"`
	Interval     time.Duration `mapstructure:"interval"`
}

// OrdersConfig bounds concurrent working orders.
type OrdersConfig struct {
	MaxActive    int           `mapstructure:"max_active"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ProductConfig is one futures product class's deliverable window.
type ProductConfig struct {
	Table    string  `mapstructure:"table"`
	MinYears float64 `mapstructure:"min_years"`
	MaxYears float64 `mapstructure:"max_years"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COMMAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "commas")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("broker.base_url", "https://localhost:5000/v1/api")
	v.SetDefault("broker.request_timeout", "10s")
	v.SetDefault("broker.user_agent", "commas/1.0")
	v.SetDefault("broker.insecure", true)

	v.SetDefault("pipeline.refresh_interval", "2s")
	v.SetDefault("pipeline.liveness_interval", "10s")
	v.SetDefault("pipeline.symbols", []string{"ZT", "Z3N", "ZF", "ZN", "TN"})
	v.SetDefault("pipeline.universe_size", 25)
	v.SetDefault("pipeline.leverage", 4.0)
	v.SetDefault("pipeline.top_pairs", 3)

	v.SetDefault("ratelimit.capacity", 49)
	v.SetDefault("ratelimit.refill_amount", 49)
	v.SetDefault("ratelimit.interval", "1s")

	v.SetDefault("orders.max_active", 3)
	v.SetDefault("orders.poll_interval", "1s")

	for symbol, bracket := range ctd.DefaultBrackets() {
		key := "products." + strings.ToLower(symbol)
		v.SetDefault(key+".table", bracket.Table)
		v.SetDefault(key+".min_years", bracket.MinYears)
		v.SetDefault(key+".max_years", bracket.MaxYears)
	}
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Pipeline.RefreshInterval <= 0 {
		return fmt.Errorf("pipeline.refresh_interval must be greater than zero")
	}
	if c.Pipeline.LivenessInterval <= 0 {
		return fmt.Errorf("pipeline.liveness_interval must be greater than zero")
	}
	if len(c.Pipeline.Symbols) == 0 {
		return fmt.Errorf("pipeline.symbols must name at least one product")
	}
	if c.Pipeline.UniverseSize <= 0 {
		return fmt.Errorf("pipeline.universe_size must be greater than zero")
	}
	if c.Pipeline.Leverage <= 0 {
		return fmt.Errorf("pipeline.leverage must be greater than zero")
	}
	if c.Pipeline.TopPairs <= 0 {
		return fmt.Errorf("pipeline.top_pairs must be greater than zero")
	}
	if c.RateLimit.Capacity <= 0 || c.RateLimit.RefillAmount <= 0 || c.RateLimit.Interval <= 0 {
		return fmt.Errorf("ratelimit values must all be greater than zero")
	}
	if c.Orders.MaxActive <= 0 || c.Orders.PollInterval <= 0 {
		return fmt.Errorf("orders values must all be greater than zero")
	}

	brackets := c.Brackets()
	for _, symbol := range c.Pipeline.Symbols {
		if _, ok := brackets[strings.ToUpper(symbol)]; !ok {
			return fmt.Errorf("pipeline.symbols: no product configured for %q", symbol)
		}
	}
	return nil
}

// Brackets converts the product section into matcher brackets. Viper
// lowercases map keys, so symbols are restored to their exchange form.
func (c *Config) Brackets() map[string]ctd.Bracket {
	out := make(map[string]ctd.Bracket, len(c.Products))
	for symbol, p := range c.Products {
		out[strings.ToUpper(symbol)] = ctd.Bracket{
			Table:    p.Table,
			MinYears: p.MinYears,
			MaxYears: p.MaxYears,
		}
	}
	return out
}

// Symbols returns the configured product symbols in exchange form.
func (c *Config) Symbols() []string {
	out := make([]string, len(c.Pipeline.Symbols))
	for i, s := range c.Pipeline.Symbols {
		out[i] = strings.ToUpper(s)
	}
	return out
}
