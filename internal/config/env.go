// Package config loads process settings from the environment and behavioral
// tuning from an optional CUE file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jackwaller57/simpa/internal/bridge"
)

// Env holds settings read from SIMPA_* environment variables.
type Env struct {
	BridgeAddr      string        `env:"SIMPA_BRIDGE_ADDR" envDefault:"127.0.0.1:5800"`
	Discover        bool          `env:"SIMPA_DISCOVER"`
	ConnectAttempts uint          `env:"SIMPA_CONNECT_ATTEMPTS" envDefault:"5"`
	ConnectDelay    time.Duration `env:"SIMPA_CONNECT_DELAY" envDefault:"2s"`
	SetupTimeout    time.Duration `env:"SIMPA_SETUP_TIMEOUT" envDefault:"10s"`
	Listen          string        `env:"SIMPA_LISTEN" envDefault:"127.0.0.1:7420"`
	PollYield       time.Duration `env:"SIMPA_POLL_YIELD" envDefault:"2ms"`
	TuningFile      string        `env:"SIMPA_TUNING_FILE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv returns the environment settings with defaults applied.
func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// ClientConfig returns the bridge client settings.
func (e Env) ClientConfig() bridge.ClientConfig {
	addr := e.BridgeAddr
	if e.Discover {
		addr = bridge.AddrAuto
	}
	return bridge.ClientConfig{
		Addr:       addr,
		Attempts:   e.ConnectAttempts,
		RetryDelay: e.ConnectDelay,
	}
}

// Tuning loads TuningFile over the defaults. The poll yield comes from the
// environment unless the file sets poll_yield.
func (e Env) Tuning() (Tuning, error) {
	base := DefaultTuning()
	if e.PollYield > 0 {
		base.PollYield = e.PollYield
	}
	if e.TuningFile == "" {
		return base, nil
	}
	return loadOver(base, e.TuningFile)
}
