// internal/config/config.go
//
// This package handles project settings and the .testgen directory. Running
// testgen in a directory creates .testgen/ there to hold logs and an optional
// config.yaml with compiler and default flag values.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/testgen/internal/history"
)

const (
	// Dir is the name of the directory we create in each working directory
	Dir = ".testgen"

	// CompilerEnv overrides compiler.name from the project config.
	CompilerEnv = "TESTGEN_COMPILER"

	defaultCompiler = "pdflatex"
	defaultOutFile  = "test"
	defaultMaxTries = 10
)

const defaultProjectConfigYAML = `# testgen project configuration
version: 1

# External document compiler. The rendered .tex path is appended to args.
compiler:
  name: pdflatex
  args:
    - -interaction=nonstopmode

# Values used when the matching command line flag is not given.
defaults:
  outfile: test
  max_tries: 10
`

// CompilerConfig selects the external document compiler.
type CompilerConfig struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args,omitempty"`
}

// DefaultsConfig holds fallbacks for command line flags.
type DefaultsConfig struct {
	OutFile  string `yaml:"outfile"`
	MaxTries int    `yaml:"max_tries"`
}

// ProjectConfig models .testgen/config.yaml.
type ProjectConfig struct {
	Version  int            `yaml:"version"`
	Compiler CompilerConfig `yaml:"compiler"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Config holds the runtime configuration for testgen.
type Config struct {
	// ProjectDir is the directory testgen was run from
	ProjectDir string

	// StateDir is ProjectDir/.testgen
	StateDir string

	Project ProjectConfig
}

// InitDir creates the .testgen directory structure in the given directory.
//
// Structure created:
// .testgen/
// ├── logs/         <- run logs
// ├── history.log   <- one line per run (appended by the CLI)
// └── config.yaml   <- project settings (written once)
func InitDir(projectDir string) error {
	stateDir := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(filepath.Join(stateDir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(stateDir, "config.yaml"))
}

// NewConfig creates a Config populated with project settings. A missing
// config.yaml leaves the defaults in place.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, Dir),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(os.Getenv(CompilerEnv)); name != "" {
		cfg.Project.Compiler = CompilerConfig{Name: name}
	}
	return cfg, nil
}

// HistoryPath returns the run journal location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.StateDir, history.FileName)
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// Compiler returns the configured compiler settings.
func (c *Config) Compiler() CompilerConfig {
	return c.Project.Compiler
}

// DefaultOutFile returns the output base name used when --outfile is absent.
func (c *Config) DefaultOutFile() string {
	return c.Project.Defaults.OutFile
}

// DefaultMaxTries returns the attempt bound used when --max_tries is absent.
func (c *Config) DefaultMaxTries() int {
	return c.Project.Defaults.MaxTries
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:  1,
		Compiler: CompilerConfig{Name: defaultCompiler, Args: []string{"-interaction=nonstopmode"}},
		Defaults: DefaultsConfig{OutFile: defaultOutFile, MaxTries: defaultMaxTries},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Compiler.Name) == "" {
		pc.Compiler.Name = defaultCompiler
	}
	if strings.TrimSpace(pc.Defaults.OutFile) == "" {
		pc.Defaults.OutFile = defaultOutFile
	}
	if pc.Defaults.MaxTries == 0 {
		pc.Defaults.MaxTries = defaultMaxTries
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Compiler.Name = strings.TrimSpace(pc.Compiler.Name)
	pc.Defaults.OutFile = strings.TrimSpace(pc.Defaults.OutFile)
	args := pc.Compiler.Args[:0]
	for _, arg := range pc.Compiler.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	pc.Compiler.Args = args
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Defaults.MaxTries < 1 {
		return fmt.Errorf("defaults.max_tries must be >= 1")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
