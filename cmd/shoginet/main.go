// shoginet is a distributed analysis client for lishogi: it acquires
// analysis, move and puzzle jobs from the server and runs them against
// locally managed USI engines.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/herohde/shoginet/pkg/api"
	"github.com/herohde/shoginet/pkg/client"
	"github.com/herohde/shoginet/pkg/config"
)

// Exit codes, following the sysexits convention for configuration.
const (
	exitOK     = 0
	exitUpdate = 70
	exitConfig = 78
)

var flags struct {
	conf   string
	noConf bool

	key              string
	cores            string
	memory           string
	threads          int
	endpoint         string
	engineDir        string
	stdEngineCmd     string
	variantEngineCmd string
	fixedBackoff     bool
	noFixedBackoff   bool
	setoptionStd     []string
	setoptionVariant []string

	verbose int
}

func main() {
	root := &cobra.Command{
		Use:     "shoginet",
		Short:   "shoginet is a distributed analysis client for lishogi",
		Version: client.Version(),
		RunE:    runE,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	g := root.PersistentFlags()
	g.StringVar(&flags.conf, "conf", "", "configuration file")
	g.BoolVar(&flags.noConf, "no-conf", false, "do not use a configuration file")
	g.StringVarP(&flags.key, "key", "k", "", "shoginet api key")
	g.StringVar(&flags.cores, "cores", "", "number of cores to use for engine processes (or auto for n - 1, or all for n)")
	g.StringVar(&flags.memory, "memory", "", "total memory (MB) to use for engine hashtables")
	g.IntVar(&flags.threads, "threads-per-process", 0, "hint for the number of threads to use per engine process")
	g.StringVar(&flags.endpoint, "endpoint", "", fmt.Sprintf("lishogi https endpoint (default: %v)", config.DefaultEndpoint))
	g.StringVar(&flags.engineDir, "engine-dir", "", "engine working directory")
	g.StringVar(&flags.stdEngineCmd, "std-engine-cmd", "", "standard engine command")
	g.StringVar(&flags.variantEngineCmd, "variant-engine-cmd", "", "variant engine command")
	g.BoolVar(&flags.fixedBackoff, "fixed-backoff", false, "fixed backoff (only recommended for move servers)")
	g.BoolVar(&flags.noFixedBackoff, "no-fixed-backoff", false, "jittered exponential backoff")
	g.StringArrayVarP(&flags.setoptionStd, "setoption", "o", nil, "set a custom usi option on the standard engine (NAME=VALUE)")
	g.StringArrayVar(&flags.setoptionVariant, "setoption-variant", nil, "set a custom usi option on the variant engine (NAME=VALUE)")
	g.CountVarP(&flags.verbose, "verbose", "v", "increase verbosity")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the analysis client (default)",
			RunE:  runE,
		},
		&cobra.Command{
			Use:   "configure",
			Short: "Interactive configuration",
			RunE:  configureE,
		},
		&cobra.Command{
			Use:   "systemd",
			Short: "Print a systemd unit for the current command line",
			RunE:  systemdE,
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch {
		case errors.Is(err, config.ErrConfig):
			os.Exit(exitConfig)
		case errors.Is(err, api.ErrUpdateRequired):
			os.Exit(exitUpdate)
		default:
			os.Exit(1)
		}
	}
	os.Exit(exitOK)
}

// loadConfig reads the config file, unless disabled, and applies the
// command-line overrides on top.
func loadConfig(ctx context.Context) (*config.Config, error) {
	path := flags.conf
	if flags.noConf {
		path = ""
	} else if path == "" {
		if _, err := os.Stat(config.DefaultConfigFile); err == nil {
			path = config.DefaultConfigFile
		}
	}

	return config.Load(path, func(f *config.File) {
		if flags.engineDir != "" {
			f.Shoginet.EngineDir = flags.engineDir
		}
		if flags.stdEngineCmd != "" {
			f.Shoginet.StdEngineCmd = flags.stdEngineCmd
		}
		if flags.variantEngineCmd != "" {
			f.Shoginet.VariantEngineCmd = flags.variantEngineCmd
		}
		if flags.key != "" {
			f.Shoginet.Key = flags.key
		}
		if flags.cores != "" {
			f.Shoginet.Cores = flags.cores
		}
		if flags.memory != "" {
			f.Shoginet.Memory = flags.memory
		}
		if flags.threads > 0 {
			f.Shoginet.Threads = fmt.Sprint(flags.threads)
		}
		if flags.endpoint != "" {
			f.Shoginet.Endpoint = flags.endpoint
		}
		if flags.fixedBackoff {
			f.Shoginet.FixedBackoff = true
		}
		if flags.noFixedBackoff {
			f.Shoginet.FixedBackoff = false
		}
		applyOptions(&f.EngineStd, flags.setoptionStd)
		applyOptions(&f.EngineVariant, flags.setoptionVariant)
	})
}

func applyOptions(section *map[string]string, pairs []string) {
	for _, pair := range pairs {
		name, value, ok := cutOption(pair)
		if !ok {
			continue
		}
		if *section == nil {
			*section = map[string]string{}
		}
		(*section)[name] = value
	}
}

func cutOption(pair string) (string, string, bool) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '=' {
			return pair[:i], pair[i+1:], i > 0
		}
	}
	return "", "", false
}
