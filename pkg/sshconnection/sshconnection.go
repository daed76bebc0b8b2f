package sshconnection

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultTimeout = 15 * time.Second

// Options describes how to reach and authenticate to a host. Password and
// PrivateKeyFile may both be set; the key is tried first. Host keys are only
// checked when KnownHostsFile is set.
type Options struct {
	Host           string
	Username       string
	Password       string
	PrivateKeyFile string
	Passphrase     string
	KnownHostsFile string
	Timeout        time.Duration
}

type SSHConnection struct {
	host   string
	Config *ssh.ClientConfig
	Client *ssh.Client
}

func clientConfig(opts Options) (*ssh.ClientConfig, error) {
	config := &ssh.ClientConfig{
		User:            opts.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         opts.Timeout,
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	if opts.PrivateKeyFile != "" {
		key, err := os.ReadFile(opts.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("sshconnection: could not read private key: %w", err)
		}
		var signer ssh.Signer
		if opts.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(opts.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("sshconnection: could not parse private key %s: %w", opts.PrivateKeyFile, err)
		}
		config.Auth = append(config.Auth, ssh.PublicKeys(signer))
	}
	if opts.Password != "" {
		config.Auth = append(config.Auth, ssh.Password(opts.Password))
	}
	if len(config.Auth) == 0 {
		return nil, fmt.Errorf("sshconnection: either password or private key is required")
	}

	if opts.KnownHostsFile != "" {
		callback, err := knownhosts.New(opts.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("sshconnection: could not load known hosts: %w", err)
		}
		config.HostKeyCallback = callback
	}
	return config, nil
}

func Connect(ctx context.Context, opts Options) (*SSHConnection, error) {
	host := opts.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(strings.Trim(host, "[]"), "22")
	}
	c := &SSHConnection{
		host: host,
	}

	config, err := clientConfig(opts)
	if err != nil {
		return nil, err
	}
	c.Config = config

	dialer := &net.Dialer{Timeout: config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("sshconnection: could not connect to host %s: %w", c.host, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, host, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sshconnection: could not connect to host %s: %w", c.host, err)
	}
	conn.SetDeadline(time.Time{})
	c.Client = ssh.NewClient(sshConn, chans, reqs)
	return c, nil
}

func (c *SSHConnection) Disconnect() error {
	return c.Client.Close()
}

// Output runs cmd in a new session and returns its standard output. The
// session is closed early if ctx is done.
func (c *SSHConnection) Output(ctx context.Context, cmd string) ([]byte, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("sshconnection: could not start new session to host %s: %w", c.host, err)
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.Output(cmd)
		done <- result{out, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return r.out, fmt.Errorf("sshconnection: %q on host %s: %w", cmd, c.host, r.err)
		}
		return r.out, nil
	case <-ctx.Done():
		session.Close()
		return nil, ctx.Err()
	}
}
