package nbody

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/viper"
)

// relativityOn is the process-wide relativity switch: a single ambient
// flag, default on, toggled via SetRelativity. Callers that need concurrent
// integrations under different relativity settings should instead set
// EngineConfig.Relativity explicitly, which always takes precedence over
// this ambient default when non-nil.
var relativityOn int32 = 1

// SetRelativity sets the process-wide relativity flag consumed by any
// EngineConfig whose Relativity field is left nil.
func SetRelativity(on bool) {
	if on {
		atomic.StoreInt32(&relativityOn, 1)
	} else {
		atomic.StoreInt32(&relativityOn, 0)
	}
}

func ambientRelativity() bool {
	return atomic.LoadInt32(&relativityOn) != 0
}

// EngineConfig is the explicit, value-typed configuration threaded into
// every entry point, so central-body and relativity selection are safe to
// vary across concurrent integrations rather than living in ambient state.
type EngineConfig struct {
	// CentralBody is the primary whose mu defines the Kepler part of the
	// force. Defaults to Sun when zero-valued.
	CentralBody BodyIndex
	// Relativity overrides the ambient process-wide flag for this call when
	// non-nil.
	Relativity *bool
	// ExtrapolationKind selects Polynomial (default) or Rational
	// extrapolation for the Bulirsch-Stoer driver.
	ExtrapolationKind ExtrapolationKind
}

// relativityEnabled resolves the effective relativity setting for this
// config, falling back to the ambient process-wide flag.
func (c EngineConfig) relativityEnabled() bool {
	if c.Relativity != nil {
		return *c.Relativity
	}
	return ambientRelativity()
}

// centralBody resolves the effective central body, defaulting to the Sun.
func (c EngineConfig) centralBody() BodyIndex {
	if c.CentralBody == 0 {
		return Sun
	}
	return c.CentralBody
}

// DefaultEngineConfig returns the engine's default configuration: Sun
// central body, ambient relativity, polynomial extrapolation.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{CentralBody: Sun, ExtrapolationKind: Polynomial}
}

// FileConfig is the shape of the TOML configuration consumed by the
// cmd/propagate demonstration binary, loaded via viper: a named config file
// on a search path, overridable by environment variables named after each key
// with an NBODY_ prefix.
type FileConfig struct {
	CentralBody  string  `mapstructure:"central_body"`
	Relativity   bool    `mapstructure:"relativity"`
	Extrapolator string  `mapstructure:"extrapolator"`
	StepDays     float64 `mapstructure:"step_days"`
	Tolerance    float64 `mapstructure:"tolerance_ll"`
	OutputDir    string  `mapstructure:"output_dir"`
}

// LoadFileConfig reads propagate.toml (or propagate.yaml/json, per viper's
// usual resolution) from confDir and returns the parsed EngineConfig plus
// the raw file configuration for binary-specific fields (step size,
// tolerance, output directory) that don't belong on EngineConfig itself.
func LoadFileConfig(confDir string) (EngineConfig, FileConfig, error) {
	v := viper.New()
	v.SetConfigName("propagate")
	v.AddConfigPath(confDir)
	v.SetEnvPrefix("NBODY")
	v.AutomaticEnv()
	v.SetDefault("central_body", "Sun")
	v.SetDefault("relativity", true)
	v.SetDefault("extrapolator", "polynomial")
	v.SetDefault("step_days", 1.0)
	v.SetDefault("tolerance_ll", 12.0)

	if err := v.ReadInConfig(); err != nil {
		return EngineConfig{}, FileConfig{}, newError("LoadFileConfig", DomainError, err,
			"could not read propagate config from %s", confDir)
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return EngineConfig{}, FileConfig{}, newError("LoadFileConfig", DomainError, err, "could not unmarshal config")
	}

	cb, err := bodyFromString(fc.CentralBody)
	if err != nil {
		return EngineConfig{}, FileConfig{}, err
	}
	kind := Polynomial
	if fc.Extrapolator == "rational" {
		kind = Rational
	}
	cfg := EngineConfig{CentralBody: cb, Relativity: &fc.Relativity, ExtrapolationKind: kind}
	return cfg, fc, nil
}

func bodyFromString(name string) (BodyIndex, error) {
	for b := Mercury; b <= Sun; b++ {
		if b.String() == name {
			return b, nil
		}
	}
	return 0, newError("LoadFileConfig", DomainError, nil, "unknown central body %q", fmt.Sprint(name))
}
