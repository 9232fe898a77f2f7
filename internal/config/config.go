// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"marzban-manager/internal/domain"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. MARZBAN_PANEL_PASSWORD.
const EnvPrefix = "MARZBAN_"

type RuntimeConfig struct {
	Dev bool
}

type PanelConfig struct {
	Address            string        `yaml:"address" env:"ADDRESS"` // host only, no scheme/port
	Port               int           `yaml:"port" env:"PORT"`
	Scheme             string        `yaml:"scheme" env:"SCHEME"` // https | http
	Username           string        `yaml:"username" env:"USERNAME"`
	Password           string        `yaml:"password" env:"PASSWORD"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" env:"INSECURE_SKIP_VERIFY"`
	Timeout            time.Duration `yaml:"timeout" env:"TIMEOUT"`
	PageSize           int           `yaml:"page_size" env:"PAGE_SIZE"`
	RateLimit          float64       `yaml:"rate_limit" env:"RATE_LIMIT"` // requests/sec, 0 = unpaced
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"FORMAT"` // json|console
	Sampling bool   `yaml:"sampling" env:"SAMPLING"`
}

type TelegramConfig struct {
	Token   string  `yaml:"token" env:"TOKEN"`
	ChatIDs []int64 `yaml:"chat_ids" env:"CHAT_IDS" envSeparator:","`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`
	Job            string `yaml:"job" env:"JOB"`
}

type UIConfig struct {
	Lang    string `yaml:"lang" env:"LANG"` // en | fa
	NoColor bool   `yaml:"no_color" env:"NO_COLOR"`
}

type Config struct {
	Panel    PanelConfig    `yaml:"panel" envPrefix:"PANEL_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Telegram TelegramConfig `yaml:"telegram" envPrefix:"TELEGRAM_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
	UI       UIConfig       `yaml:"ui" envPrefix:"UI_"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (a missing file yields defaults), applies
// MARZBAN_* environment overrides and fills defaults. It does not validate; credentials
// may still be collected interactively before Validate is called.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// DefaultPort is used when neither file, env nor flags set panel.port.
const DefaultPort = 443

func (c *Config) applyDefaults() {
	if c.Panel.Scheme == "" {
		c.Panel.Scheme = "https"
	}
	if c.Panel.Timeout <= 0 {
		c.Panel.Timeout = 15 * time.Second
	}
	if c.Panel.PageSize <= 0 {
		c.Panel.PageSize = 500
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "marzban_manager"
	}
	if c.UI.Lang == "" {
		c.UI.Lang = "en"
	}
}

// Validate checks what is needed to reach the panel.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Panel.Address) == "" {
		return fmt.Errorf("%w: panel.address is required", domain.ErrInvalidArgument)
	}
	if c.Panel.Username == "" {
		return fmt.Errorf("%w: panel.username is required", domain.ErrInvalidArgument)
	}
	if c.Panel.Scheme != "https" && c.Panel.Scheme != "http" {
		return fmt.Errorf("%w: panel.scheme must be http or https, got %q", domain.ErrInvalidArgument, c.Panel.Scheme)
	}
	if c.Panel.Port < 0 || c.Panel.Port > 65535 {
		return fmt.Errorf("%w: panel.port out of range: %d", domain.ErrInvalidArgument, c.Panel.Port)
	}
	return nil
}

// BaseURL builds scheme://host:port, with DefaultPort for an unset port. An
// address pasted with a scheme or trailing slash is tolerated.
func (p PanelConfig) BaseURL() string {
	host := strings.TrimSpace(p.Address)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimRight(host, "/")
	port := p.Port
	if port <= 0 {
		port = DefaultPort
	}
	return p.Scheme + "://" + host + ":" + strconv.Itoa(port)
}
