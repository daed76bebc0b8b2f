package dnsquery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/sapslaj/dynip/address"
	"github.com/sapslaj/dynip/pkg/log"
)

const (
	DefaultResolver = "resolver1.opendns.com"
	DefaultHostname = "myip.opendns.com"
	queryTimeout    = 5 * time.Second
)

// DNSQuerySourceConfig points at a resolver that answers a well-known name
// with the address of the client asking. RecordType is "A" (default) or
// "TXT", the latter for resolvers such as o-o.myaddr.l.google.com on
// ns1.google.com.
type DNSQuerySourceConfig struct {
	Resolver   string
	Hostname   string
	RecordType string
}

type dnsQuerySource struct {
	server   string
	hostname string
	qtype    uint16
	client   *dns.Client
	logger   *zap.Logger
}

func NewDNSQuerySource(sourceConfig DNSQuerySourceConfig) (address.Source, error) {
	resolver := sourceConfig.Resolver
	if resolver == "" {
		resolver = DefaultResolver
	}
	if _, _, err := net.SplitHostPort(resolver); err != nil {
		resolver = net.JoinHostPort(resolver, "53")
	}
	hostname := sourceConfig.Hostname
	if hostname == "" {
		hostname = DefaultHostname
	}
	var qtype uint16
	switch strings.ToUpper(sourceConfig.RecordType) {
	case "", "A":
		qtype = dns.TypeA
	case "TXT":
		qtype = dns.TypeTXT
	default:
		return nil, fmt.Errorf("dnsquery: unsupported record type %q", sourceConfig.RecordType)
	}
	s := &dnsQuerySource{
		server:   resolver,
		hostname: dns.Fqdn(hostname),
		qtype:    qtype,
		client: &dns.Client{
			Timeout: queryTimeout,
		},
		logger: log.MustNewLogger().Named("dns_address_source"),
	}
	return s, nil
}

func (s *dnsQuerySource) FetchAddress(ctx context.Context) (string, error) {
	m := new(dns.Msg)
	m.SetQuestion(s.hostname, s.qtype)
	r, _, err := s.client.ExchangeContext(ctx, m, s.server)
	if err != nil {
		return "", fmt.Errorf("dnsquery: query %s at %s: %w", s.hostname, s.server, err)
	}
	if r.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("dnsquery: query %s at %s: %s", s.hostname, s.server, dns.RcodeToString[r.Rcode])
	}
	for _, answer := range r.Answer {
		var candidate string
		switch rr := answer.(type) {
		case *dns.A:
			candidate = rr.A.String()
		case *dns.TXT:
			candidate = strings.Join(rr.Txt, "")
		default:
			continue
		}
		ip, err := address.ValidateIPv4(candidate)
		if err != nil {
			s.logger.Sugar().Debugw("skipping answer", "answer", answer.String(), "error", err)
			continue
		}
		return ip, nil
	}
	return "", fmt.Errorf("dnsquery: no IPv4 answer for %s at %s", s.hostname, s.server)
}
