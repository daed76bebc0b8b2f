package ssh

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTabulateParse(t *testing.T) {
	t.Parallel()

	data := `
Name   Gender  Age
-----  ------  ---
Alice  F       24
Bob    M       19
Tay            21
`
	data = strings.TrimPrefix(data, "\n")

	expect := []map[string]string{
		{
			"Name":   "Alice",
			"Gender": "F",
			"Age":    "24",
		},
		{
			"Name":   "Bob",
			"Gender": "M",
			"Age":    "19",
		},
		{
			"Name":   "Tay",
			"Gender": "",
			"Age":    "21",
		},
	}

	got, err := TabulateParse([]byte(data))
	require.NoError(t, err)
	require.Equal(t, expect, got)
}

func TestTabulateParse_Preamble(t *testing.T) {
	t.Parallel()

	data := `Codes: S - State, L - Link, u - Up, D - Down, A - Admin Down
Interface        IP Address                        S/L  Description
---------        ----------                        ---  -----------
eth0             203.0.113.5/24                    u/u  WAN uplink
                 2001:db8::5/64
lo               127.0.0.1/8                       u/u
`

	got, err := TabulateParse([]byte(data))
	require.NoError(t, err)
	require.Equal(t, []map[string]string{
		{"Interface": "eth0", "IP Address": "203.0.113.5/24", "S/L": "u/u", "Description": "WAN uplink"},
		{"Interface": "", "IP Address": "2001:db8::5/64", "S/L": "", "Description": ""},
		{"Interface": "lo", "IP Address": "127.0.0.1/8", "S/L": "u/u", "Description": ""},
	}, got)
}

func TestTabulateParse_NoUnderline(t *testing.T) {
	t.Parallel()

	_, err := TabulateParse([]byte("just one line\n"))
	require.Error(t, err)
}
