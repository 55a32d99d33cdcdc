package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// Duration wraps time.Duration so configuration files can use human
	// readable values ("45s", "2m") rather than nanosecond counts.
	Duration time.Duration

	MigrationConfig struct {
		AssetBaseURL  string      `yaml:"asset_base_url" validate:"required"`
		Brand         BrandFamily `yaml:"brand" validate:"omitempty,oneof=none stellantis"`
		FormatterPath string      `yaml:"formatter_path,omitempty" validate:"omitempty,filepath"`
		StatsDB       string      `yaml:"stats_db,omitempty" sanitize:"path_clean" validate:"omitempty,filepath"`
	}

	CompilerConfig struct {
		BinaryPath    string   `yaml:"binary_path,omitempty" validate:"omitempty,filepath"`
		Timeout       Duration `yaml:"timeout" validate:"gt=0"`
		ContainerName string   `yaml:"container_name" validate:"required"`
		LogTail       int      `yaml:"log_tail" validate:"min=10,max=5000"`
	}

	RepairConfig struct {
		MaxRetries     int      `yaml:"max_retries" validate:"min=1,max=10"`
		MaxEscalations int      `yaml:"max_escalations" validate:"min=1,max=5"`
		PollInterval   Duration `yaml:"poll_interval" validate:"gt=0"`
		CompileWait    Duration `yaml:"compile_wait" validate:"gt=0"`
		CleanupWait    Duration `yaml:"cleanup_wait" validate:"gt=0"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Migration MigrationConfig `yaml:"migration"`
		Compiler  CompilerConfig  `yaml:"compiler"`
		Repair    RepairConfig    `yaml:"repair"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

// Std returns wrapped value as standard time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration value %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation. Precedence is explicit: file value
// wins over expanded default, nothing else is consulted.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
