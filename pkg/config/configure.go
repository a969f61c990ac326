package config

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/herohde/shoginet/pkg/api"
)

// Configure runs the interactive setup: prompts for the engine directory
// and commands, cores, optionally the endpoint, and the API key, validates
// answers and writes the config file. Threads, Memory and FixedBackoff are
// not prompted for; values already in the file are kept.
func Configure(ctx context.Context, path string, in io.Reader, out io.Writer) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	r := bufio.NewReader(in)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "### Configuration")
	fmt.Fprintln(out)

	var f File
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return nil, fmt.Errorf("%w: could not read config file %v: %v", ErrConfig, path, err)
		}
	}

	dir, err := prompt(r, out, fmt.Sprintf("Engine working directory (default: %v): ", mustAbs(".")), ValidateEngineDir)
	if err != nil {
		return nil, err
	}
	f.Shoginet.EngineDir = dir

	fmt.Fprintln(out)
	fmt.Fprintln(out, "YaneuraOu is licensed under the GNU General Public License v3.")
	fmt.Fprintln(out, "You can build a custom binary yourself and provide the path or")
	fmt.Fprintln(out, "command, or leave it empty to use the default filename.")
	fmt.Fprintln(out)
	f.Shoginet.StdEngineCmd = readLine(r, out, "Path or command for the standard engine (default works on linux): ")

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Fairy-Stockfish is licensed under the GNU General Public License v3.")
	fmt.Fprintln(out)
	f.Shoginet.VariantEngineCmd = readLine(r, out, "Path or command for the variant engine (default works on linux): ")
	fmt.Fprintln(out)

	n := runtime.NumCPU()
	cores, err := prompt(r, out,
		fmt.Sprintf("Number of cores to use for engine threads (default %v, max %v): ", max(1, n-1), n),
		func(s string) (string, error) {
			if _, err := ValidateCores(s); err != nil {
				return "", err
			}
			return s, nil
		})
	if err != nil {
		return nil, err
	}
	f.Shoginet.Cores = cores

	if yes := readLine(r, out, "Configure advanced options? (default: no) "); parseBool(yes) {
		endpoint, err := prompt(r, out,
			fmt.Sprintf("Shoginet API endpoint (default: %v): ", DefaultEndpoint), ValidateEndpoint)
		if err != nil {
			return nil, err
		}
		f.Shoginet.Endpoint = endpoint
	}

	change := true
	if f.Shoginet.Key != "" {
		change = parseBool(readLine(r, out, "Change API key? (default: no) "))
	}
	if change {
		key, err := promptKey(ctx, r, out, &f)
		if err != nil {
			return nil, err
		}
		f.Shoginet.Key = key
	}

	conf, err := Validate(&f)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: could not write config file %v: %v", ErrConfig, path, err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(&f); err != nil {
		return nil, fmt.Errorf("%w: could not write config file %v: %v", ErrConfig, path, err)
	}

	fmt.Fprintf(out, "Configuration saved to %v.\n", path)
	return conf, nil
}

// promptKey reads an API key, validating it against the server unless
// forced with a trailing '!'.
func promptKey(ctx context.Context, r *bufio.Reader, out io.Writer, f *File) (string, error) {
	for {
		raw := readLine(r, out, "Personal API key (append ! to force): ")
		force := strings.HasSuffix(strings.TrimSpace(raw), "!")

		key, err := ValidateKey(raw)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if key == "" || force {
			return key, nil
		}

		endpoint, err := ValidateEndpoint(f.Shoginet.Endpoint)
		if err != nil {
			return "", err
		}
		client, err := api.NewClient(endpoint)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrConfig, err)
		}
		ok, err := client.ValidateKey(ctx, key)
		if err != nil {
			fmt.Fprintf(out, "Could not check the key against %v: %v\n", endpoint, err)
			continue
		}
		if !ok {
			fmt.Fprintln(out, "Invalid or inactive API key.")
			continue
		}
		return key, nil
	}
}

func prompt(r *bufio.Reader, out io.Writer, msg string, validate func(string) (string, error)) (string, error) {
	for {
		inp := readLine(r, out, msg)
		v, err := validate(inp)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		return v, nil
	}
}

func readLine(r *bufio.Reader, out io.Writer, msg string) string {
	fmt.Fprint(out, msg)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "j", "yes", "yep", "true", "t", "1", "ok":
		return true
	default:
		return false
	}
}

func mustAbs(path string) string {
	abs, err := os.Getwd()
	if err != nil {
		return path
	}
	return abs
}
