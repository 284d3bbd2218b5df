package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	DataDir     string `yaml:"data_dir" default:"data"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"5s"`
		AllowOrigins    []string      `yaml:"allow_origins"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Analysis struct {
		Workers           int           `yaml:"workers" default:"4"`
		FitTimeout        time.Duration `yaml:"fit_timeout" default:"60s"`
		StrictConvergence bool          `yaml:"strict_convergence"`
		MaxIterations     int           `yaml:"max_iterations" default:"2000"`
		Tolerance         float64       `yaml:"tolerance" default:"1e-9"`
		StallIterations   int           `yaml:"stall_iterations" default:"100"`
		RealizedWindow    int           `yaml:"realized_window" default:"12"`
	} `yaml:"analysis"`
	RateLimit struct {
		RPS   float64 `yaml:"rps" default:"5"`
		Burst int     `yaml:"burst" default:"10"`
	} `yaml:"rate_limit"`
	Cache struct {
		FitTTL     time.Duration `yaml:"fit_ttl" default:"24h"`
		MemorySize int           `yaml:"memory_size" default:"512"`
		MemoryTTL  time.Duration `yaml:"memory_ttl" default:"10m"`
		TableTTL   time.Duration `yaml:"table_ttl" default:"10m"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"cropvol"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"volatility.fitted"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"cropvol"`
		Table            string        `yaml:"table" default:"fit_history"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Jobs struct {
		Workers    int           `yaml:"workers" default:"1"`
		QueueSize  int           `yaml:"queue_size" default:"64"`
		RetryLimit int           `yaml:"retry_limit" default:"2"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		StatusTTL  time.Duration `yaml:"status_ttl" default:"24h"`
		HistoryMax int           `yaml:"history_max" default:"200"`
	} `yaml:"jobs"`
	ModelService struct {
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
		Attempts int           `yaml:"attempts" default:"2"`
	} `yaml:"model_service"`
	Datasets []Dataset `yaml:"datasets"`
}

// Dataset is one configured analysis. Relative paths resolve against DataDir.
type Dataset struct {
	Name        string     `yaml:"name"`
	Commodity   string     `yaml:"commodity"`
	Level       string     `yaml:"level"`
	Regions     []string   `yaml:"regions"`
	Price       Table      `yaml:"price"`
	PriceWindow Window     `yaml:"price_window"`
	MeteoWindow Window     `yaml:"meteo_window"`
	Meteo       []Meteo    `yaml:"meteo"`
	Forecasts   []Forecast `yaml:"forecasts"`
}

type Table struct {
	Path       string `yaml:"path"`
	Sheet      string `yaml:"sheet"`
	DateColumn string `yaml:"date_column" default:"Date"`
}

// Window bounds are YYYY-MM-DD; an empty bound is open.
type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type Meteo struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
	Unit  string `yaml:"unit"`
	Table `yaml:",inline"`
}

type Forecast struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
	Color string `yaml:"color" default:"orange"`
	Path  string `yaml:"path"`
	URL   string `yaml:"url"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// ApplyEnv overrides selected fields from CROPVOL_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("CROPVOL_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("CROPVOL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("CROPVOL_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("CROPVOL_CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Enabled = true
		c.ClickHouse.Host = v
	}
	if v := getenv("CROPVOL_REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Host = host
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("CROPVOL_REDIS_ADDR: invalid port %q", port)
			}
			c.Cache.Redis.Port = p
		}
	}
	return nil
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	for i := range c.Datasets {
		d := &c.Datasets[i]
		if err := defaults.Set(&d.Price); err != nil {
			return fmt.Errorf("config defaults: %w", err)
		}
		for j := range d.Meteo {
			if err := defaults.Set(&d.Meteo[j].Table); err != nil {
				return fmt.Errorf("config defaults: %w", err)
			}
		}
		for j := range d.Forecasts {
			if err := defaults.Set(&d.Forecasts[j]); err != nil {
				return fmt.Errorf("config defaults: %w", err)
			}
		}
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be positive, got %d", c.Analysis.Workers)
	}
	if c.Analysis.FitTimeout <= 0 {
		return fmt.Errorf("analysis.fit_timeout must be positive")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Jobs.RetryLimit < 0 {
		return fmt.Errorf("jobs.retry_limit cannot be negative")
	}
	if len(c.Datasets) == 0 {
		return fmt.Errorf("datasets cannot be empty")
	}
	seen := make(map[string]bool, len(c.Datasets))
	for _, d := range c.Datasets {
		if d.Name == "" {
			return fmt.Errorf("dataset name is required")
		}
		if seen[d.Name] {
			return fmt.Errorf("dataset %q defined twice", d.Name)
		}
		seen[d.Name] = true
		if len(d.Regions) == 0 {
			return fmt.Errorf("dataset %q: regions cannot be empty", d.Name)
		}
		if d.Price.Path == "" {
			return fmt.Errorf("dataset %q: price.path is required", d.Name)
		}
		for _, w := range []Window{d.PriceWindow, d.MeteoWindow} {
			if _, _, err := w.Bounds(); err != nil {
				return fmt.Errorf("dataset %q: %w", d.Name, err)
			}
		}
		for _, f := range d.Forecasts {
			if f.Name == "" || (f.Path == "") == (f.URL == "") {
				return fmt.Errorf("dataset %q: forecast %q needs a name and exactly one of path or url", d.Name, f.Name)
			}
		}
	}
	return nil
}

// Bounds parses the window. Zero times stand for open bounds.
func (w Window) Bounds() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if w.Start != "" {
		if start, err = time.Parse("2006-01-02", w.Start); err != nil {
			return start, end, fmt.Errorf("window start %q: %w", w.Start, err)
		}
	}
	if w.End != "" {
		if end, err = time.Parse("2006-01-02", w.End); err != nil {
			return start, end, fmt.Errorf("window end %q: %w", w.End, err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("window end %s before start %s", w.End, w.Start)
	}
	return start, end, nil
}

// ResolvePath joins p onto DataDir unless p is absolute.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// RedisAddr returns host:port of the L2 cache.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Cache.Redis.Host, c.Cache.Redis.Port)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
