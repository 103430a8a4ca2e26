package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultGeoJSON = "https://raw.githubusercontent.com/codeforamerica/click_that_hood/master/public/data/brazil-states.geojson"

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Pipeline PipelineConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DataConfig locates the source tables and the boundary collection.
type DataConfig struct {
	OrdersCSV    string
	CustomersCSV string
	SellersCSV   string
	GeoSource    string
	GeoCodeKey   string
	GeoNameKey   string
	CacheDir     string
}

type PipelineConfig struct {
	MinMonthlyOrders   int
	TopCategories      int
	TopRegions         int
	ExcludedFreightBin string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

// binding ties a config key to its environment variable and default.
type binding struct {
	key      string
	env      string
	fallback any
}

var bindings = []binding{
	{"server.host", "SERVER_HOST", "localhost"},
	{"server.port", "SERVER_PORT", 8084},
	{"server.read_timeout", "SERVER_READ_TIMEOUT", 10 * time.Second},
	{"server.write_timeout", "SERVER_WRITE_TIMEOUT", 30 * time.Second},
	{"server.idle_timeout", "SERVER_IDLE_TIMEOUT", 60 * time.Second},
	{"server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT", 30 * time.Second},

	{"data.orders_csv", "ORDERS_CSV", "data/orders.csv"},
	{"data.customers_csv", "CUSTOMERS_CSV", "data/customers.csv"},
	{"data.sellers_csv", "SELLERS_CSV", "data/sellers.csv"},
	{"data.geojson_source", "GEOJSON_SOURCE", defaultGeoJSON},
	{"data.geo_code_key", "GEO_CODE_KEY", "sigla"},
	{"data.geo_name_key", "GEO_NAME_KEY", "name"},
	{"data.cache_dir", "CACHE_DIR", ".cache"},

	{"pipeline.min_monthly_orders", "MIN_MONTHLY_ORDERS", 75},
	{"pipeline.top_categories", "TOP_CATEGORIES", 5},
	{"pipeline.top_regions", "TOP_REGIONS", 3},
	{"pipeline.excluded_freight_bin", "EXCLUDED_FREIGHT_BIN", ">100%"},

	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", "json"},

	{"security.rate_limit_enabled", "SECURITY_RATE_LIMIT_ENABLED", true},
	{"security.rate_limit_rps", "SECURITY_RATE_LIMIT_RPS", 100},
	{"security.rate_limit_burst", "SECURITY_RATE_LIMIT_BURST", 10},
	{"security.allowed_origins", "SECURITY_ALLOWED_ORIGINS", "http://localhost:8084"},
	{"security.trusted_proxies", "SECURITY_TRUSTED_PROXIES", "127.0.0.1"},
}

// Load builds the configuration from defaults, an optional file named by
// DASHBOARD_CONFIG, and the environment, in increasing priority.
func Load() (*Config, error) {
	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.fallback)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.env, err)
		}
	}

	if err := v.BindEnv("config_file", "DASHBOARD_CONFIG"); err != nil {
		return nil, err
	}
	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Data: DataConfig{
			OrdersCSV:    v.GetString("data.orders_csv"),
			CustomersCSV: v.GetString("data.customers_csv"),
			SellersCSV:   v.GetString("data.sellers_csv"),
			GeoSource:    v.GetString("data.geojson_source"),
			GeoCodeKey:   v.GetString("data.geo_code_key"),
			GeoNameKey:   v.GetString("data.geo_name_key"),
			CacheDir:     v.GetString("data.cache_dir"),
		},
		Pipeline: PipelineConfig{
			MinMonthlyOrders:   v.GetInt("pipeline.min_monthly_orders"),
			TopCategories:      v.GetInt("pipeline.top_categories"),
			TopRegions:         v.GetInt("pipeline.top_regions"),
			ExcludedFreightBin: v.GetString("pipeline.excluded_freight_bin"),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Security: SecurityConfig{
			EnableRateLimit: v.GetBool("security.rate_limit_enabled"),
			RateLimitRPS:    v.GetInt("security.rate_limit_rps"),
			RateLimitBurst:  v.GetInt("security.rate_limit_burst"),
			AllowedOrigins:  stringList(v, "security.allowed_origins"),
			TrustedProxies:  stringList(v, "security.trusted_proxies"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// stringList accepts either a list from a config file or a comma separated
// string from the environment.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case string:
		raw = strings.Split(val, ",")
	default:
		raw = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	for name, path := range map[string]string{
		"orders":    c.Data.OrdersCSV,
		"customers": c.Data.CustomersCSV,
		"sellers":   c.Data.SellersCSV,
		"geojson":   c.Data.GeoSource,
	} {
		if path == "" {
			return fmt.Errorf("%s source cannot be empty", name)
		}
	}

	if c.Data.GeoCodeKey == "" {
		return fmt.Errorf("geo code key cannot be empty")
	}

	if c.Pipeline.MinMonthlyOrders < 0 {
		return fmt.Errorf("min monthly orders cannot be negative")
	}

	if c.Pipeline.TopCategories <= 0 || c.Pipeline.TopRegions <= 0 {
		return fmt.Errorf("top category and region counts must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
