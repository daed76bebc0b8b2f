package ipify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sapslaj/dynip/address"
	"github.com/sapslaj/dynip/pkg/log"
)

const (
	DefaultURL     = "https://api.ipify.org?format=json"
	requestTimeout = 15 * time.Second
)

type IpifySourceConfig struct {
	URL string
}

type ipifySource struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

type ipifyResponse struct {
	IP string `json:"ip"`
}

func NewIpifySource(sourceConfig IpifySourceConfig) (address.Source, error) {
	url := sourceConfig.URL
	if url == "" {
		url = DefaultURL
	}
	s := &ipifySource{
		url: url,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: log.MustNewLogger().Named("ipify_address_source"),
	}
	return s, nil
}

func (s *ipifySource) FetchAddress(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("ipify: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("ipify: unexpected status %d from %s", resp.StatusCode, s.url)
	}
	var body ipifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("ipify: decode response: %w", err)
	}
	ip, err := address.ValidateIPv4(body.IP)
	if err != nil {
		return "", fmt.Errorf("ipify: %w", err)
	}
	s.logger.Sugar().Debugw("fetched address", "address", ip)
	return ip, nil
}
