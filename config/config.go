package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/microgrid/auth"
	"github.com/kilianp07/microgrid/core/engine"
	"github.com/kilianp07/microgrid/core/metrics"
	coremqtt "github.com/kilianp07/microgrid/core/mqtt"
	"github.com/kilianp07/microgrid/core/ticklog"
	"github.com/kilianp07/microgrid/infra/mqtt"
	"github.com/kilianp07/microgrid/infra/telemetry"
)

// EnvPrefix marks environment overrides. Nested keys are separated by a
// double underscore: MG_ENGINE__SPEED=2 sets engine.speed.
const EnvPrefix = "MG_"

type Config struct {
	Engine    engine.Config    `json:"engine"`
	Balance   BalanceConfig    `json:"balance"`
	Estimator EstimatorConfig  `json:"estimator"`
	API       APIConfig        `json:"api"`
	MQTT      mqtt.Config      `json:"mqtt"`
	Telemetry telemetry.Config `json:"telemetry"`
	Metrics   metrics.Config   `json:"metrics"`
	TickLog   ticklog.Config   `json:"ticklog"`
	Logging   LoggingConfig    `json:"logging"`
	Sentry    SentryConfig     `json:"sentry"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	return Config{
		Balance: BalanceConfig{Enabled: true, Period: DefaultBalancePeriod},
		API:     APIConfig{Listen: ":8080", Auth: auth.Conf{Anonymous: auth.RoleViewer}},
		Telemetry: telemetry.Config{
			SnapshotInterval: telemetry.DefaultSnapshotInterval,
			PublishTicks:     true,
			PublishAlerts:    true,
			PublishCommands:  true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the file at path, applies MG_ environment overrides and
// validates the result. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	c.Estimator.SetDefaults()
	if c.Engine.Estimation.IsZero() {
		c.Engine.Estimation = c.Estimator.Model
	}
	c.Engine.SetDefaults()
	c.Balance.SetDefaults()
	c.API.Auth.SetDefaults()
	c.Telemetry.SetDefaults()
	c.TickLog.SetDefaults()
	c.Logging.SetDefaults()
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = coremqtt.DefaultPrefix
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.Estimator.Validate(); err != nil {
		return err
	}
	if err := c.API.Auth.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.TickLog.Validate(); err != nil {
		return err
	}
	if err := c.Sentry.Validate(); err != nil {
		return err
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: sink %d has no type", i)
		}
	}
	return c.Logging.Validate()
}

// DefaultBalancePeriod is the auto-balance evaluation period.
const DefaultBalancePeriod = 3 * time.Second

// BalanceConfig controls the auto-balance loop.
type BalanceConfig struct {
	Enabled bool          `json:"enabled"`
	Period  time.Duration `json:"period"`
}

// SetDefaults applies DefaultBalancePeriod.
func (c *BalanceConfig) SetDefaults() {
	if c.Period <= 0 {
		c.Period = DefaultBalancePeriod
	}
}
