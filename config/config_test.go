package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapslaj/dynip/engine"
)

func testConfigFile(t *testing.T, pattern string, contents string) (configFileName string) {
	t.Helper()
	file, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("testConfigFile encountered error when creating temp file: %v", err)
	}
	_, err = file.Write([]byte(contents))
	if err != nil {
		t.Fatalf("testConfigFile encountered error when writing temp file: %v", err)
	}
	err = file.Close()
	if err != nil {
		t.Fatalf("testConfigFile encountered error when closing temp file: %v", err)
	}
	return file.Name()
}

func newTestConfig(t *testing.T, configFileName string) Config {
	t.Helper()
	config, err := NewConfig(configFileName)
	require.NoError(t, err)
	require.NoError(t, config.Parse())
	t.Cleanup(config.Close)
	return config
}

func configZones(t *testing.T, config Config) []engine.Zone {
	t.Helper()
	zones, err := config.Zones(context.Background())
	require.NoError(t, err)
	return zones
}

func assertType(t *testing.T, v any, want string) {
	t.Helper()
	got := reflect.TypeOf(v).String()
	if got != want {
		t.Errorf("incorrect type; got: %s, want: %s", got, want)
	}
}

func TestNewConfig(t *testing.T) {
	tests := map[string]string{
		"config.lua":  "*config.luaConfig",
		"config.yaml": "*config.yamlConfig",
		"config.YML":  "*config.yamlConfig",
	}
	for fileName, want := range tests {
		t.Run(fileName, func(t *testing.T) {
			c, err := NewConfig(filepath.Join(t.TempDir(), fileName))
			require.NoError(t, err)
			assertType(t, c, want)
		})
	}

	_, err := NewConfig("config.toml")
	assert.ErrorContains(t, err, "cannot determine format")
}
