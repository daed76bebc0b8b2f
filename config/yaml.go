package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/sapslaj/dynip/address"
	"github.com/sapslaj/dynip/config/configtypes"
	"github.com/sapslaj/dynip/engine"
	"github.com/sapslaj/dynip/pkg/log"
)

// yamlDocument is the layout of a YAML configuration file. String values may
// reference environment variables as $NAME or ${NAME}.
type yamlDocument struct {
	Interval  *int                `yaml:"Interval"`
	Verbosity *int                `yaml:"Verbosity"`
	Address   *addressDeclaration `yaml:"Address"`
	Zones     []zoneDeclaration   `yaml:"Zones"`
}

type yamlConfig struct {
	logger         *zap.Logger
	configFileName string
	settings       configtypes.Settings
	address        addressDeclaration
	zones          []zoneDeclaration
}

// NewYAMLConfig builds new YAML file configuration provider.
func NewYAMLConfig(configFileName string) (Config, error) {
	c := &yamlConfig{
		logger:         log.MustNewLogger().Named("yaml_config"),
		configFileName: configFileName,
		settings:       configtypes.DefaultSettings(),
	}
	return c, nil
}

func (c *yamlConfig) Parse() error {
	data, err := os.ReadFile(c.configFileName)
	if err != nil {
		newErr := fmt.Errorf("config: failed to read configuration file %s: %w", c.configFileName, err)
		c.logger.Error(newErr.Error())
		return newErr
	}

	var doc yamlDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("file is empty")
		}
		newErr := fmt.Errorf("config: failed to parse configuration file %s: %w", c.configFileName, err)
		c.logger.Error(newErr.Error())
		return newErr
	}

	settings := configtypes.DefaultSettings()
	if doc.Interval != nil {
		settings.IntervalMinutes = *doc.Interval
	}
	if doc.Verbosity != nil {
		settings.Verbosity = *doc.Verbosity
	}
	errs := validateSettings(settings)
	if len(doc.Zones) == 0 {
		errs = multierr.Append(errs, errors.New("config: no zones declared"))
	}
	if errs != nil {
		c.logger.Sugar().Errorw("invalid configuration", "file", c.configFileName, "err", errs)
		return errs
	}

	var addr addressDeclaration
	if doc.Address != nil {
		addr = *doc.Address
	}
	addr.expandEnv()
	for i := range doc.Zones {
		doc.Zones[i].expandEnv()
	}

	c.settings = settings
	c.address = addr
	c.zones = doc.Zones
	return nil
}

func (c *yamlConfig) Settings() configtypes.Settings {
	return c.settings
}

func (c *yamlConfig) AddressSource() (address.Source, error) {
	c.logger.Sugar().Infow("configuring address source", "kind", c.address.Kind)
	return buildAddressSource(c.address)
}

// Zones builds every declared zone in file order. Zones are named by their
// zone id in errors and logs. All problems are reported together.
func (c *yamlConfig) Zones(ctx context.Context) ([]engine.Zone, error) {
	var errs error
	zones := make([]engine.Zone, 0, len(c.zones))
	for i, decl := range c.zones {
		zoneName := decl.ZoneID
		if zoneName == "" {
			zoneName = fmt.Sprintf("#%d", i+1)
		}
		zoneLogger := c.logger.With(zap.String("zone", zoneName)).Sugar()
		zoneLogger.Infof("config: processing zone %s", zoneName)

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

func (c *yamlConfig) Close() {}
