package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herohde/shoginet/pkg/config"
)

func TestValidateCores(t *testing.T) {
	n := runtime.NumCPU()

	tests := []struct {
		in       string
		expected int
		ok       bool
	}{
		{"", max(1, n-1), true},
		{"auto", max(1, n-1), true},
		{"all", n, true},
		{"1", 1, true},
		{"0", 0, false},
		{"-2", 0, false},
		{"bogus", 0, false},
	}

	for _, tt := range tests {
		v, err := config.ValidateCores(tt.in)
		if !tt.ok {
			assert.ErrorIsf(t, err, config.ErrConfig, "cores=%q", tt.in)
			continue
		}
		require.NoErrorf(t, err, "cores=%q", tt.in)
		assert.Equal(t, tt.expected, v)
	}
}

func TestValidateThreads(t *testing.T) {
	v, err := config.ValidateThreads("auto", 8)
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	v, err = config.ValidateThreads("", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = config.ValidateThreads("4", 2)
	assert.ErrorIs(t, err, config.ErrConfig)

	_, err = config.ValidateThreads("0", 2)
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestValidateMemory(t *testing.T) {
	v, err := config.ValidateMemory("auto", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2*config.HashDefault), v)

	_, err = config.ValidateMemory("1", 4, 2)
	assert.ErrorIs(t, err, config.ErrConfig)

	_, err = config.ValidateMemory("99999999", 4, 2)
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestValidateEndpoint(t *testing.T) {
	v, err := config.ValidateEndpoint("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEndpoint, v)

	v, err = config.ValidateEndpoint("https://example.org/fishnet")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/fishnet/", v)

	_, err = config.ValidateEndpoint("ftp://example.org/")
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestValidateKey(t *testing.T) {
	v, err := config.ValidateKey("  abcDEF123! ")
	require.NoError(t, err)
	assert.Equal(t, "abcDEF123", v)

	v, err = config.ValidateKey("")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = config.ValidateKey("not a key")
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestValidateEngineDir(t *testing.T) {
	dir := t.TempDir()
	v, err := config.ValidateEngineDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, v)

	_, err = config.ValidateEngineDir(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shoginet.toml")
	content := `
[Shoginet]
EngineDir = "` + dir + `"
Key = "abc123"
Cores = "all"
Threads = "1"
Endpoint = "https://example.org/fishnet/"
FixedBackoff = true

[EngineStd]
Threads = "7"

[EngineVariant]
USI_Hash = "64"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	conf, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, dir, conf.EngineDir)
	assert.Equal(t, "abc123", conf.Key)
	assert.Equal(t, runtime.NumCPU(), conf.Cores)
	assert.Equal(t, 1, conf.Threads)
	assert.True(t, conf.FixedBackoff)
	assert.Equal(t, map[string]string{"Threads": "7"}, conf.EngineStd)
	assert.Equal(t, map[string]string{"USI_Hash": "64"}, conf.EngineVariant)
	assert.NotEmpty(t, conf.StdEngineCmd)
	assert.NotEmpty(t, conf.VariantEngineCmd)
}

func TestLoadOverrides(t *testing.T) {
	conf, err := config.Load("", func(f *config.File) {
		f.Shoginet.Cores = "1"
		f.Shoginet.Threads = "1"
		f.Shoginet.Key = "zzz"
	})
	require.NoError(t, err)

	assert.Equal(t, 1, conf.Cores)
	assert.Equal(t, "zzz", conf.Key)
	assert.Equal(t, config.DefaultEndpoint, conf.Endpoint)
}

func TestEngineFilenames(t *testing.T) {
	assert.NotEmpty(t, config.StdEngineFilename())
	assert.NotEmpty(t, config.VariantEngineFilename())
}
