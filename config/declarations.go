package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/sapslaj/dynip/address"
	"github.com/sapslaj/dynip/address/dnsquery"
	"github.com/sapslaj/dynip/address/ipify"
	"github.com/sapslaj/dynip/address/ssh"
	"github.com/sapslaj/dynip/config/configtypes"
	"github.com/sapslaj/dynip/engine"
	"github.com/sapslaj/dynip/pkg/sshconnection"
	"github.com/sapslaj/dynip/provider"
	"github.com/sapslaj/dynip/provider/aws"
	"github.com/sapslaj/dynip/provider/cloudflare"
	"github.com/sapslaj/dynip/record"
)

const (
	ProviderKindCloudflare = "cloudflare"
	ProviderKindAWSRoute53 = "aws_route53"

	AddressKindIpify  = "ipify"
	AddressKindDNS    = "dns"
	AddressKindCustom = "custom"
	AddressKindSSH    = "ssh"

	minimumIntervalMinutes = 1
)

type recordDeclaration struct {
	Name    string   `yaml:"Name"`
	Type    string   `yaml:"RecordType"`
	Content string   `yaml:"Address"`
	Proxied bool     `yaml:"Proxied"`
	Comment string   `yaml:"Comment"`
	ID      string   `yaml:"Id"`
	Tags    []string `yaml:"Tags"`
	TTL     int      `yaml:"TTL"`
}

type zoneDeclaration struct {
	Provider    string              `yaml:"Provider"`
	ZoneID      string              `yaml:"ZoneId"`
	BearerToken string              `yaml:"BearerToken"`
	APIKey      string              `yaml:"ApiKey"`
	Email       string              `yaml:"Email"`
	BaseURL     string              `yaml:"BaseUrl"`
	Region      string              `yaml:"Region"`
	Records     []recordDeclaration `yaml:"DnsRecords"`
}

type addressDeclaration struct {
	Kind           string `yaml:"Kind"`
	URL            string `yaml:"Url"`
	Resolver       string `yaml:"Resolver"`
	Hostname       string `yaml:"Hostname"`
	RecordType     string `yaml:"RecordType"`
	Host           string `yaml:"Host"`
	Username       string `yaml:"Username"`
	Password       string `yaml:"Password"`
	PrivateKeyFile string `yaml:"PrivateKeyFile"`
	Passphrase     string `yaml:"Passphrase"`
	KnownHostsFile string `yaml:"KnownHostsFile"`
	Command        string `yaml:"Command"`
	Interface      string `yaml:"Interface"`
	TimeoutSeconds int    `yaml:"TimeoutSeconds"`
}

func (d *recordDeclaration) expandEnv() {
	d.Name = os.ExpandEnv(d.Name)
	d.Content = os.ExpandEnv(d.Content)
	d.Comment = os.ExpandEnv(d.Comment)
	d.ID = os.ExpandEnv(d.ID)
	for i := range d.Tags {
		d.Tags[i] = os.ExpandEnv(d.Tags[i])
	}
}

func (d *zoneDeclaration) expandEnv() {
	d.Provider = os.ExpandEnv(d.Provider)
	d.ZoneID = os.ExpandEnv(d.ZoneID)
	d.BearerToken = os.ExpandEnv(d.BearerToken)
	d.APIKey = os.ExpandEnv(d.APIKey)
	d.Email = os.ExpandEnv(d.Email)
	d.BaseURL = os.ExpandEnv(d.BaseURL)
	d.Region = os.ExpandEnv(d.Region)
	for i := range d.Records {
		d.Records[i].expandEnv()
	}
}

func (d *addressDeclaration) expandEnv() {
	for _, field := range []*string{
		&d.Kind,
		&d.URL,
		&d.Resolver,
		&d.Hostname,
		&d.RecordType,
		&d.Host,
		&d.Username,
		&d.Password,
		&d.PrivateKeyFile,
		&d.Passphrase,
		&d.KnownHostsFile,
		&d.Command,
		&d.Interface,
	} {
		*field = os.ExpandEnv(*field)
	}
}

func validateSettings(s configtypes.Settings) error {
	if s.IntervalMinutes < minimumIntervalMinutes {
		return fmt.Errorf("config: interval must be at least %d minute, got %d", minimumIntervalMinutes, s.IntervalMinutes)
	}
	return nil
}

// buildRecords validates every record declaration of a zone. All problems
// are reported together.
func buildRecords(zoneName string, decls []recordDeclaration) ([]record.DesiredRecord, error) {
	var errs error
	records := make([]record.DesiredRecord, 0, len(decls))
	seen := map[record.Key]int{}
	for i, decl := range decls {
		d, err := record.NewDesiredRecord(record.Params{
			Name:       decl.Name,
			Type:       decl.Type,
			Content:    decl.Content,
			Proxied:    decl.Proxied,
			Comment:    decl.Comment,
			ProviderID: decl.ID,
			Tags:       decl.Tags,
			TTL:        decl.TTL,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("zone %s record %d (%s): %w", zoneName, i+1, decl.Name, err))
			continue
		}
		if first, ok := seen[d.Key()]; ok {
			errs = multierr.Append(errs, fmt.Errorf(
				"zone %s record %d (%s): duplicates record %d",
				zoneName, i+1, decl.Name, first,
			))
			continue
		}
		seen[d.Key()] = i + 1
		records = append(records, d)
	}
	return records, errs
}

func buildProvider(ctx context.Context, decl zoneDeclaration) (provider.Provider, error) {
	kind := strings.ToLower(decl.Provider)
	if kind == "" {
		kind = ProviderKindCloudflare
	}
	switch kind {
	case ProviderKindCloudflare:
		return cloudflare.NewCloudflareProvider(cloudflare.CloudflareProviderConfig{
			BearerToken: decl.BearerToken,
			APIKey:      decl.APIKey,
			Email:       decl.Email,
			BaseURL:     decl.BaseURL,
		})
	case ProviderKindAWSRoute53:
		return aws.NewRoute53Provider(ctx, aws.Route53ProviderConfig{
			Region: decl.Region,
		})
	}
	return nil, fmt.Errorf("unsupported provider %q", decl.Provider)
}

// buildZone turns a zone declaration into an engine zone. Record problems
// are checked before the provider is constructed.
func buildZone(ctx context.Context, zoneName string, decl zoneDeclaration) (engine.Zone, error) {
	var errs error
	if decl.ZoneID == "" {
		errs = multierr.Append(errs, fmt.Errorf("zone %s: zone id is required", zoneName))
	}
	records, err := buildRecords(zoneName, decl.Records)
	errs = multierr.Append(errs, err)
	if errs != nil {
		return engine.Zone{}, errs
	}
	p, err := buildProvider(ctx, decl)
	if err != nil {
		return engine.Zone{}, fmt.Errorf("zone %s: %w", zoneName, err)
	}
	return engine.Zone{
		ID:       decl.ZoneID,
		Provider: p,
		Records:  records,
	}, nil
}

// buildAddressSource handles every address kind that does not need a script.
func buildAddressSource(decl addressDeclaration) (address.Source, error) {
	kind := strings.ToLower(decl.Kind)
	if kind == "" {
		kind = AddressKindIpify
	}
	switch kind {
	case AddressKindIpify:
		return ipify.NewIpifySource(ipify.IpifySourceConfig{
			URL: decl.URL,
		})
	case AddressKindDNS:
		return dnsquery.NewDNSQuerySource(dnsquery.DNSQuerySourceConfig{
			Resolver:   decl.Resolver,
			Hostname:   decl.Hostname,
			RecordType: decl.RecordType,
		})
	case AddressKindSSH:
		return ssh.NewSSHSource(ssh.SSHSourceConfig{
			Connection: sshconnection.Options{
				Host:           decl.Host,
				Username:       decl.Username,
				Password:       decl.Password,
				PrivateKeyFile: decl.PrivateKeyFile,
				Passphrase:     decl.Passphrase,
				KnownHostsFile: decl.KnownHostsFile,
				Timeout:        time.Duration(decl.TimeoutSeconds) * time.Second,
			},
			Command:   decl.Command,
			Interface: decl.Interface,
		})
	case AddressKindCustom:
		return nil, fmt.Errorf("config: the %s address source needs a fetch function and is only available in Lua configuration files", AddressKindCustom)
	}
	return nil, fmt.Errorf("config: unsupported address source %q", decl.Kind)
}
