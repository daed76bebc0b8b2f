package dnsquery

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestResolver answers every question with the records produced by
// answer for its type.
func newTestResolver(t *testing.T, answer func(q dns.Question) ([]dns.RR, int)) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			rrs, rcode := answer(r.Question[0])
			m.Rcode = rcode
			m.Answer = rrs
			w.WriteMsg(m)
		}),
	}
	go server.ActivateAndServe()
	<-started
	t.Cleanup(func() { server.Shutdown() })
	return pc.LocalAddr().String()
}

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	require.NoError(t, err)
	return rr
}

func TestFetchAddress(t *testing.T) {
	tests := map[string]struct {
		recordType string
		answers    []string
		rcode      int
		want       string
		wantErr    bool
	}{
		"a record": {
			answers: []string{"myip.opendns.com. 0 IN A 198.51.100.7"},
			want:    "198.51.100.7",
		},
		"txt record": {
			recordType: "TXT",
			answers:    []string{`myip.opendns.com. 60 IN TXT "198.51.100.7"`},
			want:       "198.51.100.7",
		},
		"txt record with non address first": {
			recordType: "txt",
			answers: []string{
				`myip.opendns.com. 60 IN TXT "edns0-client-subnet 198.51.100.0/24"`,
				`myip.opendns.com. 60 IN TXT "198.51.100.7"`,
			},
			want: "198.51.100.7",
		},
		"nxdomain": {
			rcode:   dns.RcodeNameError,
			wantErr: true,
		},
		"no answers": {
			wantErr: true,
		},
	}

	for desc, tc := range tests {
		t.Run(desc, func(t *testing.T) {
			var questions []dns.Question
			addr := newTestResolver(t, func(q dns.Question) ([]dns.RR, int) {
				questions = append(questions, q)
				rrs := []dns.RR{}
				for _, a := range tc.answers {
					rrs = append(rrs, mustRR(t, a))
				}
				return rrs, tc.rcode
			})

			s, err := NewDNSQuerySource(DNSQuerySourceConfig{
				Resolver:   addr,
				RecordType: tc.recordType,
			})
			require.NoError(t, err)

			got, err := s.FetchAddress(context.Background())
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			require.Len(t, questions, 1)
			assert.Equal(t, "myip.opendns.com.", questions[0].Name)
		})
	}
}

func TestNewDNSQuerySource(t *testing.T) {
	s, err := NewDNSQuerySource(DNSQuerySourceConfig{})
	require.NoError(t, err)
	qs := s.(*dnsQuerySource)
	assert.Equal(t, "resolver1.opendns.com:53", qs.server)
	assert.Equal(t, "myip.opendns.com.", qs.hostname)
	assert.Equal(t, dns.TypeA, qs.qtype)

	_, err = NewDNSQuerySource(DNSQuerySourceConfig{RecordType: "AAAA"})
	assert.Error(t, err)
}
