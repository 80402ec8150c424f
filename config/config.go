// Package config layers the bake settings from the project file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/milk9111/animdb/controller"
	"github.com/milk9111/animdb/source"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFile   = "animdb.yaml"
	DefaultOutput = "controllers.db.yaml"
	EnvPrefix     = "ANIMDB_"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	// SourceDir is the root that include patterns are matched under.
	SourceDir    string   `yaml:"source_dir"`
	Include      []string `yaml:"include"`
	Output       string   `yaml:"output"`
	Hash         string   `yaml:"hash"`
	LegacyVector bool     `yaml:"legacy_vector"`
	Workers      int      `yaml:"workers"`
}

// Flags holds command-line overrides. Zero values leave the setting alone.
type Flags struct {
	SourceDir    string
	Output       string
	Hash         string
	LegacyVector bool
	Workers      int
}

func Default() Config {
	return Config{
		SourceDir: ".",
		Include:   append([]string(nil), source.DefaultPatterns...),
		Output:    DefaultOutput,
		Hash:      controller.HashXXH3,
		Workers:   runtime.GOMAXPROCS(0),
	}
}

// Load reads the YAML file at path over the defaults. Relative source and
// output paths are taken relative to the file. When optional is set a
// missing file yields the defaults.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if !filepath.IsAbs(cfg.SourceDir) {
		cfg.SourceDir = filepath.Join(dir, cfg.SourceDir)
	}
	if !filepath.IsAbs(cfg.Output) {
		cfg.Output = filepath.Join(dir, cfg.Output)
	}
	return cfg, nil
}

// LoadEnvFile exports the variables of a dotenv file that are not already
// set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: env %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from ANIMDB_* variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvPrefix + "SOURCE_DIR"); ok && v != "" {
		c.SourceDir = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "OUTPUT"); ok && v != "" {
		c.Output = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "HASH"); ok && v != "" {
		c.Hash = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LEGACY_VECTOR"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sLEGACY_VECTOR=%q", ErrInvalid, EnvPrefix, v)
		}
		c.LegacyVector = b
	}
	if v, ok := os.LookupEnv(EnvPrefix + "WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sWORKERS=%q", ErrInvalid, EnvPrefix, v)
		}
		c.Workers = n
	}
	return nil
}

// Resolve applies flag overrides on top of the file and environment.
func (c *Config) Resolve(f Flags) {
	if f.SourceDir != "" {
		c.SourceDir = f.SourceDir
	}
	if f.Output != "" {
		c.Output = f.Output
	}
	if f.Hash != "" {
		c.Hash = f.Hash
	}
	if f.LegacyVector {
		c.LegacyVector = true
	}
	if f.Workers > 0 {
		c.Workers = f.Workers
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}

func (c Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("%w: source_dir is empty", ErrInvalid)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output is empty", ErrInvalid)
	}
	if _, err := controller.HashByName(c.Hash); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers is %d", ErrInvalid, c.Workers)
	}
	for _, p := range c.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: include pattern %q", ErrInvalid, p)
		}
	}
	return nil
}
