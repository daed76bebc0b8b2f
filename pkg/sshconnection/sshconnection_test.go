package sshconnection

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/sapslaj/dynip/pkg/sshconnection/sshtest"
)

func TestConnectAndOutput(t *testing.T) {
	server := sshtest.NewServer(t, "vyos", "hunter2", map[string]string{
		"echo hello": "hello\n",
	})

	c, err := Connect(context.Background(), Options{
		Host:     server.Addr,
		Username: "vyos",
		Password: "hunter2",
	})
	require.NoError(t, err)
	defer c.Disconnect()

	out, err := c.Output(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	_, err = c.Output(context.Background(), "false")
	var exitErr *ssh.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 127, exitErr.ExitStatus())

	assert.Equal(t, []string{"echo hello", "false"}, server.Commands())
}

func TestConnect_WrongPassword(t *testing.T) {
	server := sshtest.NewServer(t, "vyos", "hunter2", nil)

	_, err := Connect(context.Background(), Options{
		Host:     server.Addr,
		Username: "vyos",
		Password: "wrong",
		Timeout:  5 * time.Second,
	})
	assert.Error(t, err)
}

func TestConnect_KnownHosts(t *testing.T) {
	server := sshtest.NewServer(t, "vyos", "hunter2", map[string]string{"true": ""})
	dir := t.TempDir()

	good := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{server.Addr}, server.HostKey)
	require.NoError(t, os.WriteFile(good, []byte(line+"\n"), 0o600))

	c, err := Connect(context.Background(), Options{
		Host:           server.Addr,
		Username:       "vyos",
		Password:       "hunter2",
		KnownHostsFile: good,
	})
	require.NoError(t, err)
	c.Disconnect()

	other := sshtest.NewServer(t, "vyos", "hunter2", nil)
	bad := filepath.Join(dir, "known_hosts_other")
	line = knownhosts.Line([]string{server.Addr}, other.HostKey)
	require.NoError(t, os.WriteFile(bad, []byte(line+"\n"), 0o600))

	_, err = Connect(context.Background(), Options{
		Host:           server.Addr,
		Username:       "vyos",
		Password:       "hunter2",
		KnownHostsFile: bad,
	})
	assert.Error(t, err)
}

func TestClientConfig(t *testing.T) {
	tests := map[string]struct {
		opts    Options
		auths   int
		wantErr bool
	}{
		"password": {
			opts:  Options{Username: "vyos", Password: "hunter2"},
			auths: 1,
		},
		"no credentials": {
			opts:    Options{Username: "vyos"},
			wantErr: true,
		},
		"missing key file": {
			opts:    Options{Username: "vyos", PrivateKeyFile: "/nonexistent/id_ed25519"},
			wantErr: true,
		},
		"missing known hosts": {
			opts:    Options{Username: "vyos", Password: "hunter2", KnownHostsFile: "/nonexistent/known_hosts"},
			wantErr: true,
		},
	}

	for desc, tc := range tests {
		t.Run(desc, func(t *testing.T) {
			config, err := clientConfig(tc.opts)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, config.Auth, tc.auths)
			assert.Equal(t, defaultTimeout, config.Timeout)
		})
	}
}

func TestOutput_Canceled(t *testing.T) {
	server := sshtest.NewServer(t, "vyos", "hunter2", map[string]string{"true": ""})
	c, err := Connect(context.Background(), Options{Host: server.Addr, Username: "vyos", Password: "hunter2"})
	require.NoError(t, err)
	defer c.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Output(ctx, "true")
	// The command may win the race with cancellation.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
