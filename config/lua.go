package config

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sapslaj/dynip/address"
	"github.com/sapslaj/dynip/address/custom"
	"github.com/sapslaj/dynip/config/configtypes"
	"github.com/sapslaj/dynip/config/lualib"
	"github.com/sapslaj/dynip/engine"
	"github.com/sapslaj/dynip/pkg/log"
)

type luaConfig struct {
	logger             *zap.Logger
	configFileName     string
	state              *lua.LState
	settings           configtypes.Settings
	addressDeclaration *lua.LTable
	zoneDeclarations   map[string]*lua.LTable
}

// NewLuaConfig builds new Lua script configuration provider.
func NewLuaConfig(configFileName string) (Config, error) {
	c := &luaConfig{
		logger:         log.MustNewLogger().Named("lua_config"),
		configFileName: configFileName,
		settings:       configtypes.DefaultSettings(),
	}
	return c, nil
}

// Parse executes the Lua script passed in and collects the settings, the
// address declaration and the zone declarations from the table it returns.
func (c *luaConfig) Parse() error {
	c.Close()
	c.state = lua.NewState()
	// The log module reports the script location itself.
	c.state.PreloadModule("log", lualib.NewLogLoader(c.logger.WithOptions(zap.WithCaller(false))))
	c.state.PreloadModule("http", lualib.NewHTTPLoader())
	err := c.state.DoFile(c.configFileName)
	if err != nil {
		newErr := fmt.Errorf("config: failed to execute configuration file %s: %w", c.configFileName, err)
		c.logger.Error(newErr.Error())
		return newErr
	}
	t, ok := c.state.Get(-1).(*lua.LTable)
	if !ok {
		err = fmt.Errorf("config: config file %q does not return a table", c.configFileName)
		c.logger.Error(err.Error())
		return err
	}

	var errs error
	settings := configtypes.DefaultSettings()
	settings.IntervalMinutes, err = optionalInt(t, "interval", settings.IntervalMinutes)
	errs = multierr.Append(errs, err)
	settings.Verbosity, err = optionalInt(t, "verbosity", settings.Verbosity)
	errs = multierr.Append(errs, err)
	errs = multierr.Append(errs, validateSettings(settings))

	var addressDeclaration *lua.LTable
	switch lv := t.RawGetString("address").(type) {
	case *lua.LNilType:
	case *lua.LTable:
		addressDeclaration = lv
	default:
		errs = multierr.Append(errs, fmt.Errorf("config: address must be a table, got %s", lv.Type()))
	}

	zoneDeclarations := make(map[string]*lua.LTable)
	switch lv := t.RawGetString("zones").(type) {
	case *lua.LNilType:
		errs = multierr.Append(errs, fmt.Errorf("config: no zones declared"))
	case *lua.LTable:
		lv.ForEach(func(zoneName, zoneDeclaration lua.LValue) {
			zd, ok := zoneDeclaration.(*lua.LTable)
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("config: zone %s must be a table, got %s", zoneName, zoneDeclaration.Type()))
				return
			}
			zoneDeclarations[zoneName.String()] = zd
		})
	default:
		errs = multierr.Append(errs, fmt.Errorf("config: zones must be a table, got %s", lv.Type()))
	}

	if errs != nil {
		c.logger.Sugar().Errorw("invalid configuration", "file", c.configFileName, "err", errs)
		return errs
	}
	c.settings = settings
	c.addressDeclaration = addressDeclaration
	c.zoneDeclarations = zoneDeclarations
	return nil
}

func optionalInt(t *lua.LTable, key string, fallback int) (int, error) {
	switch lv := t.RawGetString(key).(type) {
	case *lua.LNilType:
		return fallback, nil
	case lua.LNumber:
		f := float64(lv)
		if math.Trunc(f) != f {
			return fallback, fmt.Errorf("config: %s must be a whole number, got %v", key, f)
		}
		return int(f), nil
	default:
		return fallback, fmt.Errorf("config: %s must be a number, got %s", key, lv.Type())
	}
}

func (c *luaConfig) Settings() configtypes.Settings {
	return c.settings
}

// AddressSource builds the declared address source. Without a declaration
// the ipify source is used.
func (c *luaConfig) AddressSource() (address.Source, error) {
	var decl addressDeclaration
	if c.addressDeclaration == nil {
		return buildAddressSource(decl)
	}
	var sourceConfig *lua.LTable
	switch lv := c.addressDeclaration.RawGetString("config").(type) {
	case *lua.LNilType:
	case *lua.LTable:
		sourceConfig = lv
		if err := gluamapper.Map(sourceConfig, &decl); err != nil {
			return nil, fmt.Errorf("config: address: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: address config must be a table, got %s", lv.Type())
	}
	if kind, ok := c.addressDeclaration.RawGetInt(1).(lua.LString); ok {
		decl.Kind = string(kind)
	}
	c.logger.Sugar().Infow("configuring address source", "kind", decl.Kind)

	if strings.ToLower(decl.Kind) != AddressKindCustom {
		return buildAddressSource(decl)
	}
	if sourceConfig == nil {
		return nil, fmt.Errorf("config: the %s address source requires a fetch function", AddressKindCustom)
	}
	fetchFunc, ok := sourceConfig.RawGetString("fetch").(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("config: the %s address source requires a fetch function", AddressKindCustom)
	}
	return custom.NewCustomLuaSource(c.state, fetchFunc)
}

// Zones builds every declared zone in name order. All problems are reported
// together.
func (c *luaConfig) Zones(ctx context.Context) ([]engine.Zone, error) {
	names := make([]string, 0, len(c.zoneDeclarations))
	for name := range c.zoneDeclarations {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	zones := make([]engine.Zone, 0, len(names))
	for _, zoneName := range names {
		zoneLogger := c.logger.With(zap.String("zone", zoneName)).Sugar()
		zoneLogger.Infof("config: processing zone %s", zoneName)

		decl, err := c.zoneDeclaration(zoneName, c.zoneDeclarations[zoneName])
		if err != nil {
			zoneLogger.Errorw("error configuring zone", "err", err)
			errs = multierr.Append(errs, err)
			continue
		}
		zone, err := buildZone(ctx, zoneName, decl)
		if err != nil {
			zoneLogger.Errorw("error configuring zone", "err", err)
			errs = multierr.Append(errs, err)
			continue
		}
		zones = append(zones, zone)
		zoneLogger.Infow("config: finished configuration", "records", len(zone.Records))
	}
	if errs != nil {
		return nil, errs
	}
	return zones, nil
}

func (c *luaConfig) zoneDeclaration(zoneName string, zt *lua.LTable) (zoneDeclaration, error) {
	var decl zoneDeclaration
	switch lv := zt.RawGetString("config").(type) {
	case *lua.LTable:
		if err := gluamapper.Map(lv, &decl); err != nil {
			return decl, fmt.Errorf("zone %s: %w", zoneName, err)
		}
	default:
		return decl, fmt.Errorf("zone %s: config must be a table, got %s", zoneName, lv.Type())
	}
	if kind, ok := zt.RawGetInt(1).(lua.LString); ok {
		decl.Provider = string(kind)
	}

	var errs error
	switch lv := zt.RawGetString("records").(type) {
	case *lua.LNilType:
	case *lua.LTable:
		for i := 1; i <= lv.MaxN(); i++ {
			rt, ok := lv.RawGetInt(i).(*lua.LTable)
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("zone %s record %d: must be a table", zoneName, i))
				continue
			}
			var rd recordDeclaration
			if err := gluamapper.Map(rt, &rd); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("zone %s record %d: %w", zoneName, i, err))
				continue
			}
			decl.Records = append(decl.Records, rd)
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("zone %s: records must be a list of tables, got %s", zoneName, lv.Type()))
	}
	return decl, errs
}

// Close releases the Lua state. A custom address source built from this
// configuration stops working once it is closed.
func (c *luaConfig) Close() {
	if c.state != nil && !c.state.IsClosed() {
		c.state.Close()
	}
}
