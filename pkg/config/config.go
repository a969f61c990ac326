// Package config loads and validates the client configuration: a TOML
// file with a [Shoginet] table plus [EngineStd]/[EngineVariant] tables of
// custom USI options, overridable from the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pbnjay/memory"
)

// ErrConfig marks configuration errors. The process exits with code 78.
var ErrConfig = errors.New("configuration error")

// Defaults and bounds.
const (
	DefaultConfigFile = "shoginet.toml"
	DefaultEndpoint   = "https://lishogi.org/fishnet/"
	DefaultThreads    = 4

	// Hash sizes per engine process, MiB.
	HashMin     = 16
	HashDefault = 256
	HashMax     = 512
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// File is the on-disk TOML shape. Sizing values are strings so that
// "auto" and "all" remain expressible.
type File struct {
	Shoginet struct {
		EngineDir        string `toml:"EngineDir,omitempty"`
		StdEngineCmd     string `toml:"StdEngineCmd,omitempty"`
		VariantEngineCmd string `toml:"VariantEngineCmd,omitempty"`
		Key              string `toml:"Key,omitempty"`
		Cores            string `toml:"Cores,omitempty"`
		Threads          string `toml:"Threads,omitempty"`
		Memory           string `toml:"Memory,omitempty"`
		Endpoint         string `toml:"Endpoint,omitempty"`
		FixedBackoff     bool   `toml:"FixedBackoff,omitempty"`
	} `toml:"Shoginet"`
	EngineStd     map[string]string `toml:"EngineStd,omitempty"`
	EngineVariant map[string]string `toml:"EngineVariant,omitempty"`
}

// Config is the validated, read-only settings object the core consumes.
type Config struct {
	EngineDir        string
	StdEngineCmd     string
	VariantEngineCmd string
	Key              string
	Cores            int
	Threads          int   // per engine process
	Memory           int64 // MiB total for hash tables
	Endpoint         string
	FixedBackoff     bool

	// Custom USI options, applied after the invariant set.
	EngineStd     map[string]string
	EngineVariant map[string]string
}

// Instances returns the number of engine processes the pool will run.
func (c *Config) Instances() int {
	return max(1, c.Cores/c.Threads)
}

// Load reads the file (unless path is empty), applies overrides and
// validates everything.
func Load(path string, overrides func(*File)) (*Config, error) {
	var f File
	if path != "" {
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return nil, fmt.Errorf("%w: could not read config file %v: %v", ErrConfig, path, err)
		}
	}
	if overrides != nil {
		overrides(&f)
	}
	return Validate(&f)
}

// Validate turns the raw file into a Config, or fails with ErrConfig.
func Validate(f *File) (*Config, error) {
	dir, err := ValidateEngineDir(f.Shoginet.EngineDir)
	if err != nil {
		return nil, err
	}
	cores, err := ValidateCores(f.Shoginet.Cores)
	if err != nil {
		return nil, err
	}
	threads, err := ValidateThreads(f.Shoginet.Threads, cores)
	if err != nil {
		return nil, err
	}
	mem, err := ValidateMemory(f.Shoginet.Memory, cores, threads)
	if err != nil {
		return nil, err
	}
	endpoint, err := ValidateEndpoint(f.Shoginet.Endpoint)
	if err != nil {
		return nil, err
	}
	key, err := ValidateKey(f.Shoginet.Key)
	if err != nil {
		return nil, err
	}

	stdCmd := f.Shoginet.StdEngineCmd
	if stdCmd == "" {
		stdCmd = filepath.Join(".", StdEngineFilename())
	}
	varCmd := f.Shoginet.VariantEngineCmd
	if varCmd == "" {
		varCmd = filepath.Join(".", VariantEngineFilename())
	}

	return &Config{
		EngineDir:        dir,
		StdEngineCmd:     stdCmd,
		VariantEngineCmd: varCmd,
		Key:              key,
		Cores:            cores,
		Threads:          threads,
		Memory:           mem,
		Endpoint:         endpoint,
		FixedBackoff:     f.Shoginet.FixedBackoff,
		EngineStd:        f.EngineStd,
		EngineVariant:    f.EngineVariant,
	}, nil
}

// ValidateEngineDir defaults to the working directory and requires the
// directory to exist.
func ValidateEngineDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return filepath.Abs(".")
	}
	dir, err := filepath.Abs(strings.TrimSpace(dir))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfig, err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: EngineDir not found: %v", ErrConfig, dir)
	}
	return dir, nil
}

// ValidateCores accepts "auto" (all but one), "all" or an integer within
// the machine's core count.
func ValidateCores(cores string) (int, error) {
	cores = strings.ToLower(strings.TrimSpace(cores))
	n := runtime.NumCPU()

	switch cores {
	case "", "auto":
		return max(1, n-1), nil
	case "all":
		return n, nil
	}

	v, err := strconv.Atoi(cores)
	if err != nil {
		return 0, fmt.Errorf("%w: number of cores must be an integer", ErrConfig)
	}
	if v < 1 {
		return 0, fmt.Errorf("%w: need at least one core", ErrConfig)
	}
	if v > n {
		return 0, fmt.Errorf("%w: at most %v cores available on your machine", ErrConfig, n)
	}
	return v, nil
}

// ValidateThreads accepts "auto" (min of the default and cores) or an
// integer in [1, cores].
func ValidateThreads(threads string, cores int) (int, error) {
	threads = strings.ToLower(strings.TrimSpace(threads))
	if threads == "" || threads == "auto" {
		return min(DefaultThreads, cores), nil
	}

	v, err := strconv.Atoi(threads)
	if err != nil {
		return 0, fmt.Errorf("%w: number of threads must be an integer", ErrConfig)
	}
	if v < 1 {
		return 0, fmt.Errorf("%w: need at least one thread per engine process", ErrConfig)
	}
	if v > cores {
		return 0, fmt.Errorf("%w: %v cores is not enough to run %v threads", ErrConfig, cores, v)
	}
	return v, nil
}

// ValidateMemory accepts "auto" or an integer MiB total, bounded per
// engine process and by the machine's physical memory.
func ValidateMemory(mem string, cores, threads int) (int64, error) {
	processes := int64(max(1, cores/threads))

	mem = strings.ToLower(strings.TrimSpace(mem))
	if mem == "" || mem == "auto" {
		return processes * HashDefault, nil
	}

	v, err := strconv.ParseInt(mem, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: memory must be an integer", ErrConfig)
	}
	if v < processes*HashMin {
		return 0, fmt.Errorf("%w: not enough memory for a minimum of %v x %v MB in hash tables", ErrConfig, processes, HashMin)
	}
	if v > processes*HashMax {
		return 0, fmt.Errorf("%w: cannot reasonably use more than %v x %v MB = %v MB for hash tables",
			ErrConfig, processes, HashMax, processes*HashMax)
	}
	if total := int64(memory.TotalMemory() >> 20); total > 0 && v > total {
		return 0, fmt.Errorf("%w: %v MB exceeds the machine's %v MB of memory", ErrConfig, v, total)
	}
	return v, nil
}

// ValidateEndpoint defaults and requires a http(s) URL; a trailing slash
// is appended if missing.
func ValidateEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return DefaultEndpoint, nil
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return "", fmt.Errorf("%w: endpoint does not have http:// or https:// URL scheme", ErrConfig)
	}
	return endpoint, nil
}

// ValidateKey requires an alphanumeric key. Empty is allowed; the server
// will reject anonymous clients where keys are mandatory.
func ValidateKey(key string) (string, error) {
	key = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(key), "!"))
	if key == "" {
		return "", nil
	}
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: key is expected to be alphanumeric", ErrConfig)
	}
	return key, nil
}
