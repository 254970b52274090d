// Package config loads the coordinator's CLI options and its INI-formatted
// target configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Defaults for optional CLI flags.
const (
	DefaultName      = "cofuzz"
	DefaultLogFile   = "cofuzz.log"
	DefaultSampler   = "hit-and-run"
	DefaultSolverBin = "z3"
	DefaultWorkers   = 1
)

// Samplers lists the walk names accepted by -s/--sampler.
var Samplers = []string{"hit-and-run", "dikin", "vaidya", "john"}

// PutConfig holds the [put] section of the target configuration file.
type PutConfig struct {
	TraceBin  string `mapstructure:"trace_bin"`
	CohuzzBin string `mapstructure:"cohuzz_bin"`
	Argument  string `mapstructure:"argument"`
}

// TargetConfig is the parsed target configuration file.
type TargetConfig struct {
	Put PutConfig
}

// LoadTargetConfig reads the INI file at path and validates the [put] section.
func LoadTargetConfig(path string) (*TargetConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg TargetConfig
	if err := v.UnmarshalKey("put", &cfg.Put); err != nil {
		return nil, fmt.Errorf("failed to unmarshal [put] section of %s: %w", path, err)
	}

	if cfg.Put.TraceBin == "" {
		return nil, fmt.Errorf("config %s: [put] trace_bin is required", path)
	}
	if cfg.Put.CohuzzBin == "" {
		return nil, fmt.Errorf("config %s: [put] cohuzz_bin is required", path)
	}
	if !strings.Contains(cfg.Put.Argument, "@@") {
		return nil, fmt.Errorf("config %s: [put] argument must contain the literal @@ placeholder", path)
	}

	return &cfg, nil
}

// Options holds every coordinator CLI flag, validated.
type Options struct {
	ConfigPath string // -c
	OutputRoot string // -o
	FuzzerName string // -a
	Name       string // -n
	LogFile    string // -l
	Sampler    string // -s

	WalkerBin string // --walker-bin, optional
	SolverBin string // --solver-bin
	Workers   int    // --workers
}

// Validate checks the options for configuration errors, which are fatal at
// startup per the error taxonomy.
func (o *Options) Validate() error {
	if o.ConfigPath == "" {
		return fmt.Errorf("-c/--config is required")
	}
	if o.OutputRoot == "" {
		return fmt.Errorf("-o/--output is required")
	}
	info, err := os.Stat(o.OutputRoot)
	if err != nil {
		return fmt.Errorf("output root %s: %w", o.OutputRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output root %s is not a directory", o.OutputRoot)
	}
	if o.FuzzerName == "" {
		return fmt.Errorf("-a/--afl-name is required")
	}

	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.LogFile == "" {
		o.LogFile = DefaultLogFile
	}
	if o.Sampler == "" {
		o.Sampler = DefaultSampler
	}
	if !contains(Samplers, o.Sampler) {
		return fmt.Errorf("unknown sampler %q, must be one of %v", o.Sampler, Samplers)
	}
	if (o.Sampler == "vaidya" || o.Sampler == "john") && o.WalkerBin == "" {
		return fmt.Errorf("sampler %q requires --walker-bin", o.Sampler)
	}
	if o.SolverBin == "" {
		o.SolverBin = DefaultSolverBin
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// AFLDir returns the directory the mutational fuzzer owns: <output>/<afl-name>.
func (o *Options) AFLDir() string {
	return filepath.Join(o.OutputRoot, o.FuzzerName)
}

// InstanceDir returns the directory this coordinator instance owns: <output>/<name>.
func (o *Options) InstanceDir() string {
	return filepath.Join(o.OutputRoot, o.Name)
}
