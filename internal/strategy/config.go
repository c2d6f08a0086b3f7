package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents a strategy configuration entry in YAML. Parameters are
// decoded per strategy type by the factory.
type Config struct {
	ID      string    `yaml:"id"`
	Type    string    `yaml:"type"`
	Enabled bool      `yaml:"enabled"`
	Params  yaml.Node `yaml:"params"`
}

// ConfigFile represents the top-level YAML structure.
type ConfigFile struct {
	Shape    ShapeConfig `yaml:"shape"`
	Ensemble struct {
		MinAgreement  int     `yaml:"min_agreement"`
		MinConfidence float64 `yaml:"min_confidence"`
	} `yaml:"ensemble"`
	Strategies []Config `yaml:"strategies"`
}

// LoadConfig reads the strategy roster from a YAML file.
func LoadConfig(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &file, nil
}

// Build instantiates a strategy from its config entry.
func Build(cfg Config) (Strategy, error) {
	decode := func(out any) error {
		if cfg.Params.IsZero() {
			return nil
		}
		return cfg.Params.Decode(out)
	}

	switch cfg.Type {
	case "momentum":
		var p MomentumParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return NewMomentum(cfg.ID, p), nil
	case "scalping":
		var p ScalpingParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return NewScalping(cfg.ID, p), nil
	case "vwap_pullback":
		var p VWAPPullbackParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return NewVWAPPullback(cfg.ID, p), nil
	case "breakout":
		var p BreakoutParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return NewBreakout(cfg.ID, p), nil
	case "mean_reversion":
		var p MeanReversionParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return NewMeanReversion(cfg.ID, p), nil
	case "rsi_reversal":
		var p RSIReversalParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return NewRSIReversal(cfg.ID, p), nil
	case "ma_cross":
		var p MACrossParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return NewMACross(cfg.ID, p), nil
	case "institutional_flow":
		var p InstitutionalFlowParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return NewInstitutionalFlow(cfg.ID, p), nil
	case "stop_hunt":
		var p StopHuntParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return NewStopHunt(cfg.ID, p), nil
	default:
		return nil, fmt.Errorf("unknown strategy type: %s", cfg.Type)
	}
}

// BuildSet constructs the evaluator set from a loaded config file, skipping
// disabled entries.
func BuildSet(file *ConfigFile) (*Set, error) {
	shape := file.Shape
	if shape.MaxStopLossPct == 0 {
		shape = DefaultShapeConfig()
	}
	set := NewSet(shape)
	for _, cfg := range file.Strategies {
		if !cfg.Enabled {
			continue
		}
		s, err := Build(cfg)
		if err != nil {
			return nil, fmt.Errorf("build strategy %s: %w", cfg.ID, err)
		}
		set.Add(s)
	}
	return set, nil
}

// DefaultSet registers the full nine-strategy roster with default parameters.
// Used when no strategies.yaml is present.
func DefaultSet() *Set {
	set := NewSet(DefaultShapeConfig())
	set.Add(NewMomentum("momentum", MomentumParams{}))
	set.Add(NewScalping("scalping", ScalpingParams{}))
	set.Add(NewVWAPPullback("vwap_pullback", VWAPPullbackParams{}))
	set.Add(NewBreakout("breakout", BreakoutParams{}))
	set.Add(NewMeanReversion("mean_reversion", MeanReversionParams{}))
	set.Add(NewRSIReversal("rsi_reversal", RSIReversalParams{}))
	set.Add(NewMACross("ma_cross", MACrossParams{}))
	set.Add(NewInstitutionalFlow("institutional_flow", InstitutionalFlowParams{}))
	set.Add(NewStopHunt("stop_hunt", StopHuntParams{}))
	return set
}
