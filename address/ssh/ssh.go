package ssh

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sapslaj/dynip/address"
	"github.com/sapslaj/dynip/pkg/log"
	"github.com/sapslaj/dynip/pkg/sshconnection"
)

// ShowInterfacesCommand prints the interface table on VyOS routers.
const ShowInterfacesCommand = "/opt/vyatta/bin/vyatta-op-cmd-wrapper show interfaces"

// SSHSourceConfig reads the address from a router over SSH. With Interface
// set, Command (default ShowInterfacesCommand) must print an interface table
// and the first IPv4 address of that interface is used. Otherwise the first
// IPv4 literal in the output of Command is used.
type SSHSourceConfig struct {
	Connection sshconnection.Options
	Command    string
	Interface  string
}

type sshSource struct {
	config SSHSourceConfig
	logger *zap.Logger
}

func NewSSHSource(sourceConfig SSHSourceConfig) (address.Source, error) {
	if sourceConfig.Connection.Host == "" {
		return nil, fmt.Errorf("ssh: host is required")
	}
	if sourceConfig.Command == "" {
		if sourceConfig.Interface == "" {
			return nil, fmt.Errorf("ssh: either command or interface is required")
		}
		sourceConfig.Command = ShowInterfacesCommand
	}
	s := &sshSource{
		config: sourceConfig,
		logger: log.MustNewLogger().Named("ssh_address_source"),
	}
	return s, nil
}

func (s *sshSource) FetchAddress(ctx context.Context) (string, error) {
	connection, err := sshconnection.Connect(ctx, s.config.Connection)
	if err != nil {
		return "", fmt.Errorf("ssh: %w", err)
	}
	defer connection.Disconnect()

	s.logger.Sugar().Debugw(
		"running address command",
		"host", s.config.Connection.Host,
		"command", s.config.Command,
	)
	out, err := connection.Output(ctx, s.config.Command)
	if err != nil {
		return "", fmt.Errorf("ssh: %w", err)
	}

	if s.config.Interface != "" {
		return interfaceAddress(out, s.config.Interface)
	}
	for _, field := range strings.Fields(string(out)) {
		if ip, err := address.ValidateIPv4(field); err == nil {
			return ip, nil
		}
	}
	return "", fmt.Errorf("ssh: no IPv4 address in output of %q", s.config.Command)
}

// interfaceAddress finds the first IPv4 address of iface in an interface
// table. Rows with an empty interface column continue the row above.
func interfaceAddress(out []byte, iface string) (string, error) {
	rows, err := TabulateParse(out)
	if err != nil {
		return "", fmt.Errorf("ssh: could not parse interface table: %w", err)
	}
	current := ""
	for _, row := range rows {
		if name := row["Interface"]; name != "" {
			current = name
		}
		if current != iface {
			continue
		}
		cidr, _, _ := strings.Cut(row["IP Address"], "/")
		if ip, err := address.ValidateIPv4(cidr); err == nil {
			return ip, nil
		}
	}
	return "", fmt.Errorf("ssh: no IPv4 address on interface %s", iface)
}
