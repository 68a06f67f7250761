package fault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Config holds the settings of the fault subsystem for one simulated
// architecture.
type Config struct {
	// ISA names the simulated instruction set. It is reported, not matched.
	ISA string `json:"isa" yaml:"isa"`

	// Trace enables Dump output and per-fire trace logging.
	Trace bool `json:"trace" yaml:"trace"`

	// BranchConditionFaults allows IEW faults to invert resolved branch
	// conditions. Routing a condition to a fault without this capability
	// panics.
	BranchConditionFaults bool `json:"branch_condition_faults" yaml:"branch_condition_faults"`

	// ValueFaults allows IEW faults to manifest on operand and result
	// values.
	ValueFaults bool `json:"value_faults" yaml:"value_faults"`

	// NumRegs is the number of architectural registers a register decoding
	// fault may redirect to. Default: 32.
	NumRegs int `json:"num_regs" yaml:"num_regs"`

	// VectorWidth is the width in bits of vector register values.
	// Default: 128.
	VectorWidth uint `json:"vector_width" yaml:"vector_width"`

	// ReportPath is where the fire history is written after the run, as CSV
	// or Parquet depending on the extension. Empty disables the report.
	ReportPath string `json:"report_path" yaml:"report_path"`
}

// MaxRegs is the largest register index space an instruction can encode.
const MaxRegs = 256

// DefaultConfig returns the configuration for the ARM64 pipeline.
func DefaultConfig() *Config {
	return &Config{
		ISA:                   "arm64",
		BranchConditionFaults: true,
		ValueFaults:           true,
		NumRegs:               32,
		VectorWidth:           128,
	}
}

// LoadConfig loads a Config from a JSON or YAML file. Fields missing from
// the file keep their default values. The result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fault config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse fault config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fault config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON or YAML file.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize fault config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write fault config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ISA == "" {
		return fmt.Errorf("isa must be set")
	}
	if c.NumRegs <= 0 || c.NumRegs > MaxRegs {
		return fmt.Errorf("num_regs must be in (0, %d]", MaxRegs)
	}
	if c.VectorWidth == 0 || c.VectorWidth > 256 || c.VectorWidth%8 != 0 {
		return fmt.Errorf("vector_width must be a multiple of 8 in (0, 256]")
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
