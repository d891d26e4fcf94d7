package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"signalfuse/internal/engine/inflection"
	"signalfuse/internal/engine/levels"
)

//go:embed tuning.yaml
var defaultTuning []byte

var validate = validator.New()

type ScanTuning struct {
	Lookback int `yaml:"lookback" default:"300" validate:"gte=100"`
	MaxBuys  int `yaml:"max_buys" default:"5" validate:"gte=1"`
}

// Tuning holds the engine parameters that are data rather than code.
type Tuning struct {
	Offsets []inflection.OffsetRule `yaml:"offsets" validate:"required,min=1,dive"`
	Levels  levels.Options          `yaml:"levels"`
	Scan    ScanTuning              `yaml:"scan"`
}

// LoadTuning reads path, or the embedded default when path is empty.
// Missing scalar fields take their default tags before validation.
func LoadTuning(path string) (*Tuning, error) {
	data := defaultTuning
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read tuning %s: %w", path, err)
		}
		data = b
	}
	return ParseTuning(data)
}

func ParseTuning(data []byte) (*Tuning, error) {
	t := &Tuning{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parse tuning: %w", err)
	}
	if err := defaults.Set(t); err != nil {
		return nil, fmt.Errorf("apply tuning defaults: %w", err)
	}
	if err := validate.Struct(t); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}
