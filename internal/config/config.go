package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the per-run submission template: how to invoke the analysis
// tool for each event log, where intermediate results live on shared
// storage, and which environment preconditions must hold before dispatch.
type Config struct {
	JavaExec      string   `yaml:"java_exec"`
	JVMArgs       []string `yaml:"jvm_args"`
	Dependencies  []string `yaml:"dependencies"`
	LogConfigFile string   `yaml:"log_config_file"`
	MainClass     string   `yaml:"main_class"`
	ToolArgs      []string `yaml:"tool_args"`

	CacheRoot     string `yaml:"cache_root"`
	OutputDirName string `yaml:"output_dir_name"`

	RequiredEnv []string `yaml:"required_env"`
}

const (
	defaultCacheRoot     = "/tmp/distqual_cache"
	defaultOutputDirName = "rapids_4_spark_qualification_output"
)

func Default() Config {
	return Config{
		JavaExec:      "java",
		CacheRoot:     defaultCacheRoot,
		OutputDirName: defaultOutputDirName,
		RequiredEnv:   []string{"SPARK_HOME", "HADOOP_HOME", "JAVA_HOME"},
	}
}

// Load reads a YAML run configuration and overlays it on the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JavaExec) == "" {
		return errors.New("java_exec is required")
	}
	if strings.TrimSpace(c.MainClass) == "" {
		return errors.New("main_class is required")
	}
	if len(c.Dependencies) == 0 {
		return errors.New("at least one dependency is required")
	}
	for _, dep := range c.Dependencies {
		if strings.TrimSpace(dep) == "" {
			return errors.New("dependency paths must not be blank")
		}
	}
	if strings.TrimSpace(c.CacheRoot) == "" {
		return errors.New("cache_root is required")
	}
	if strings.TrimSpace(c.OutputDirName) == "" {
		return errors.New("output_dir_name is required")
	}
	return nil
}
