package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sapslaj/dynip/address"
	"github.com/sapslaj/dynip/config/configtypes"
	"github.com/sapslaj/dynip/engine"
)

// Config is an interface for configuration providers for the address source
// and zone configuration and initialization.
type Config interface {
	Parse() error
	Settings() configtypes.Settings
	AddressSource() (address.Source, error)
	Zones(ctx context.Context) ([]engine.Zone, error)
	Close()
}

// NewConfig picks a configuration provider from the file extension.
func NewConfig(configFileName string) (Config, error) {
	switch strings.ToLower(filepath.Ext(configFileName)) {
	case ".lua":
		return NewLuaConfig(configFileName)
	case ".yaml", ".yml":
		return NewYAMLConfig(configFileName)
	}
	return nil, fmt.Errorf("config: cannot determine format of %s, expected a .lua, .yaml or .yml file", configFileName)
}
