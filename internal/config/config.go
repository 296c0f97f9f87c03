package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Network   NetworkConfig   `yaml:"network" mapstructure:"network"`
	Optimizer OptimizerConfig `yaml:"optimizer" mapstructure:"optimizer"`
	Presets   PresetsConfig   `yaml:"presets" mapstructure:"presets"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// NetworkConfig configures road network acquisition.
type NetworkConfig struct {
	OverpassURL    string  `yaml:"overpass_url" mapstructure:"overpass_url"`
	NominatimURL   string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	DefaultRadiusM float64 `yaml:"default_radius_m" mapstructure:"default_radius_m"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// OptimizerConfig holds the default optimization parameters. Command
// flags override these per run.
type OptimizerConfig struct {
	Facilities    int   `yaml:"facilities" mapstructure:"facilities"`
	MinDegree     int   `yaml:"min_degree" mapstructure:"min_degree"`
	Seed          int64 `yaml:"seed" mapstructure:"seed"`
	Restarts      int   `yaml:"restarts" mapstructure:"restarts"`
	MaxIterations int   `yaml:"max_iterations" mapstructure:"max_iterations"`
}

// PresetsConfig points at the corridor presets file.
type PresetsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GOLDENHOUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "goldenhour.db")
	v.SetDefault("network.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("network.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("network.user_agent", "goldenhour/1.0")
	v.SetDefault("network.default_radius_m", 2000)
	v.SetDefault("network.timeout_secs", 120)
	v.SetDefault("network.rate_limit_rps", 1.0)
	v.SetDefault("network.max_retries", 3)
	v.SetDefault("optimizer.facilities", 5)
	v.SetDefault("optimizer.min_degree", 4)
	v.SetDefault("optimizer.seed", 42)
	v.SetDefault("optimizer.restarts", 10)
	v.SetDefault("optimizer.max_iterations", 300)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given mode ("optimize",
// "fetch" or "serve") and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "optimize":
		if c.Optimizer.Facilities < 1 {
			problems = append(problems, "optimizer.facilities must be >= 1")
		}
		if c.Optimizer.MinDegree < 1 {
			problems = append(problems, "optimizer.min_degree must be >= 1")
		}
		if c.Optimizer.Restarts < 1 || c.Optimizer.Restarts > 100 {
			problems = append(problems, "optimizer.restarts must be between 1 and 100")
		}
		if c.Optimizer.MaxIterations < 1 {
			problems = append(problems, "optimizer.max_iterations must be >= 1")
		}
	case "fetch":
		if c.Network.TimeoutSecs <= 0 {
			problems = append(problems, "network.timeout_secs must be > 0")
		}
		if c.Network.RateLimitRPS <= 0 {
			problems = append(problems, "network.rate_limit_rps must be > 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
