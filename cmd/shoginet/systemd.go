package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const systemdTemplate = `[Unit]
Description=Shoginet instance
After=network-online.target
Wants=network-online.target

[Service]
ExecStart=%v
WorkingDirectory=%v
ReadWriteDirectories=%v
User=%v
Group=%v
Nice=5
CapabilityBoundingSet=
PrivateTmp=true
PrivateDevices=true
DevicePolicy=closed
ProtectSystem=full
NoNewPrivileges=true
Restart=always

[Install]
WantedBy=multi-user.target
`

// systemdE prints a systemd unit reproducing the current command line.
// The configuration is validated first so that a broken unit is never
// emitted.
func systemdE(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	conf, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return err
	}

	builder := []string{shellQuote(exe)}
	if flags.noConf {
		builder = append(builder, "--no-conf")
	} else {
		path := flags.conf
		if path == "" {
			path = "shoginet.toml"
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		builder = append(builder, "--conf", shellQuote(abs))
	}
	if flags.key != "" {
		builder = append(builder, "--key", shellQuote(conf.Key))
	}
	if flags.engineDir != "" {
		builder = append(builder, "--engine-dir", shellQuote(conf.EngineDir))
	}
	if flags.stdEngineCmd != "" {
		builder = append(builder, "--std-engine-cmd", shellQuote(conf.StdEngineCmd))
	}
	if flags.variantEngineCmd != "" {
		builder = append(builder, "--variant-engine-cmd", shellQuote(conf.VariantEngineCmd))
	}
	if flags.cores != "" {
		builder = append(builder, "--cores", fmt.Sprint(conf.Cores))
	}
	if flags.memory != "" {
		builder = append(builder, "--memory", fmt.Sprint(conf.Memory))
	}
	if flags.threads > 0 {
		builder = append(builder, "--threads-per-process", fmt.Sprint(conf.Threads))
	}
	if flags.endpoint != "" {
		builder = append(builder, "--endpoint", shellQuote(conf.Endpoint))
	}
	if flags.fixedBackoff {
		builder = append(builder, "--fixed-backoff")
	}
	if flags.noFixedBackoff {
		builder = append(builder, "--no-fixed-backoff")
	}
	for _, pair := range flags.setoptionStd {
		builder = append(builder, "--setoption", shellQuote(pair))
	}
	for _, pair := range flags.setoptionVariant {
		builder = append(builder, "--setoption-variant", shellQuote(pair))
	}
	builder = append(builder, "run")

	username := "shoginet"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	fmt.Printf(systemdTemplate, strings.Join(builder, " "), cwd, cwd, username, username)

	if os.Geteuid() == 0 {
		fmt.Fprintln(os.Stderr, "\n# WARNING: Running as root is not recommended!")
	}
	fmt.Fprintln(os.Stderr, "\n# Example usage:")
	fmt.Fprintln(os.Stderr, "# shoginet systemd | sudo tee /etc/systemd/system/shoginet.service")
	fmt.Fprintln(os.Stderr, "# sudo systemctl enable shoginet.service")
	fmt.Fprintln(os.Stderr, "# sudo systemctl start shoginet.service")
	return nil
}

// shellQuote single-quotes a value for safe inclusion in ExecStart.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'\\$&|;<>()*?[]#~%") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
