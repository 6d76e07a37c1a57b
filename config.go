package adbfs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tool           string `yaml:"tool"`
	Device         string `yaml:"device"`
	RunAs          string `yaml:"run_as"`
	SSHHost        string `yaml:"ssh_host"`
	StagingDir     string `yaml:"staging_dir"`
	UploadStrategy string `yaml:"upload_strategy"`
	Listen         string `yaml:"listen"`
	Verbose        bool   `yaml:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		Tool:           "adb",
		StagingDir:     DefaultStagingDir,
		UploadStrategy: string(UploadStage),
		Listen:         "localhost:9594",
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the file
// keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch UploadStrategy(c.UploadStrategy) {
	case UploadStage, UploadStream:
	default:
		return fmt.Errorf("unknown upload_strategy %q (want %q or %q)", c.UploadStrategy, UploadStage, UploadStream)
	}
	if c.Tool == "" {
		return fmt.Errorf("tool must not be empty")
	}
	return nil
}

func (c Config) Options() Options {
	return Options{
		StagingDir:     c.StagingDir,
		UploadStrategy: UploadStrategy(c.UploadStrategy),
	}
}
