package scenario

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is Config's YAML-serializable form, the way the teacher's
// automation.Scenario is loaded from a scripted run file rather than
// constructed in code.
type FileConfig struct {
	Scenario          string  `yaml:"scenario"`
	TotalSteps        int     `yaml:"total_steps"`
	ShotLength        int     `yaml:"shot_length"`
	Dt                float64 `yaml:"dt"`
	TuneStartingState bool    `yaml:"tune_starting_state"`
	TuneMass          bool    `yaml:"tune_mass"`
	Parallel          bool    `yaml:"parallel"`
}

// LoadFile reads a scenario run file from path.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Config extracts the scenario.Config portion of a loaded file.
func (f *FileConfig) Config() Config {
	return Config{
		TotalSteps:        f.TotalSteps,
		ShotLength:        f.ShotLength,
		Dt:                f.Dt,
		TuneStartingState: f.TuneStartingState,
		TuneMass:          f.TuneMass,
		Parallel:          f.Parallel,
	}
}
