package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/microgrid/auth"
	"github.com/kilianp07/microgrid/core/estimation"
	"github.com/kilianp07/microgrid/core/prediction"
)

// APIConfig defines the HTTP API.
type APIConfig struct {
	// Listen is the API address; empty disables the API.
	Listen string    `json:"listen"`
	Auth   auth.Conf `json:"auth"`
}

// EstimatorConfig covers both sides of remote generation estimation: the
// client used by the engine and the standalone estimator server.
type EstimatorConfig struct {
	// URL of a remote estimator; empty keeps the local weather and controls.
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	// Listen is the address of the estimator server command.
	Listen string                  `json:"listen"`
	Model  estimation.Model        `json:"model"`
	Linear *prediction.LinearModel `json:"linear"`
}

// SetDefaults rates the model at estimation.DefaultMaxKW per source.
func (c *EstimatorConfig) SetDefaults() {
	if c.Listen == "" {
		c.Listen = ":5000"
	}
	if c.Model == (estimation.Model{}) {
		c.Model = estimation.NewModel()
	}
}

// Validate checks the forecast coefficients.
func (c EstimatorConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("estimator: timeout must not be negative")
	}
	if c.Linear != nil && len(c.Linear.Weights) > 0 {
		return c.Linear.Validate()
	}
	return nil
}
