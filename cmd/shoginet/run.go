package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/herohde/shoginet/pkg/client"
	"github.com/herohde/shoginet/pkg/config"
	"github.com/herohde/shoginet/pkg/logx"
)

func runE(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	conf, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logx.SetCensorKeyword(conf.Key)

	printBanner(conf)

	pool, err := client.NewPool(ctx, conf)
	if err != nil {
		return err
	}

	fmt.Println("### Starting workers ...")
	fmt.Println()

	events := make(chan client.Event, 4)
	stop := notifySignals(ctx, events)
	defer stop()

	return pool.Run(ctx, events)
}

// printBanner echoes the effective configuration, with the key censored.
func printBanner(conf *config.Config) {
	instances := conf.Instances()

	fmt.Println()
	fmt.Println("### Checking configuration ...")
	fmt.Println()
	fmt.Printf("Go:               %v\n", runtime.Version())
	fmt.Printf("EngineDir:        %v\n", conf.EngineDir)
	fmt.Printf("StdEngineCmd:     %v\n", conf.StdEngineCmd)
	fmt.Printf("VariantEngineCmd: %v\n", conf.VariantEngineCmd)
	key := "(none)"
	if conf.Key != "" {
		key = strings.Repeat("*", len(conf.Key))
	}
	fmt.Printf("Key:              %v\n", key)
	fmt.Printf("Cores:            %v\n", conf.Cores)
	fmt.Printf("Engine processes: %v (each ~%v threads)\n", instances, conf.Threads)
	fmt.Printf("Memory:           %v MB\n", conf.Memory)
	warning := ""
	if !strings.HasPrefix(conf.Endpoint, "https://") {
		warning = " (WARNING: not using https)"
	}
	fmt.Printf("Endpoint:         %v%v\n", conf.Endpoint, warning)
	fmt.Printf("FixedBackoff:     %v\n", conf.FixedBackoff)
	fmt.Println()

	printCustomOptions("EngineStd", conf.EngineStd)
	printCustomOptions("EngineVariant", conf.EngineVariant)
}

func printCustomOptions(section string, options map[string]string) {
	if len(options) == 0 {
		return
	}
	fmt.Printf("Using custom USI options ([%v]) is discouraged:\n", section)
	for name, value := range options {
		hint := ""
		switch strings.ToLower(name) {
		case "usi_hash", "hash":
			hint = " (use --memory instead)"
		case "threads":
			hint = " (use --threads-per-process instead)"
		}
		fmt.Printf(" * %v = %v%v\n", name, value, hint)
	}
	fmt.Println()
}

// notifySignals translates POSIX signals into supervisor control events:
// SIGINT stops after in-flight jobs, SIGTERM stops immediately, and
// SIGUSR1 requests an update exit.
func notifySignals(ctx context.Context, events chan<- client.Event) func() {
	sigc := make(chan os.Signal, 4)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	notifyUpdateSignal(sigc)

	go func() {
		for s := range sigc {
			switch {
			case s == os.Interrupt:
				events <- client.ShutdownSoon
			case s == syscall.SIGTERM:
				events <- client.Shutdown
			case isUpdateSignal(s):
				events <- client.UpdateRequired
			}
		}
	}()
	return func() {
		signal.Stop(sigc)
		close(sigc)
	}
}

func configureE(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, err := config.Configure(ctx, flags.conf, os.Stdin, os.Stdout)
	return err
}
