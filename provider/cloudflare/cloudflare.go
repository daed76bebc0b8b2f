package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sapslaj/dynip/pkg/log"
	"github.com/sapslaj/dynip/provider"
	"github.com/sapslaj/dynip/record"
)

const (
	DefaultBaseURL = "https://api.cloudflare.com/client/v4"
	requestTimeout = 30 * time.Second
	perPage        = 100
)

// CloudflareProviderConfig holds the credentials for one zone. Any
// combination of a bearer token and a global API key with email may be
// given; each header is only sent when its value is set.
type CloudflareProviderConfig struct {
	BearerToken string
	APIKey      string
	Email       string
	BaseURL     string
}

type cloudflareProvider struct {
	config     CloudflareProviderConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewCloudflareProvider(providerConfig CloudflareProviderConfig) (provider.Provider, error) {
	if providerConfig.BearerToken == "" && (providerConfig.APIKey == "" || providerConfig.Email == "") {
		return nil, fmt.Errorf("cloudflare: either bearer_token or both api_key and email must be set")
	}
	baseURL := providerConfig.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	p := &cloudflareProvider{
		config:  providerConfig,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: log.MustNewLogger().Named("cloudflare_provider"),
	}
	return p, nil
}

// ListRecords returns every record of the given class in the zone, following
// result_info paging until all pages are read.
func (p *cloudflareProvider) ListRecords(ctx context.Context, zoneID string, class record.Class) (*provider.ListResult, error) {
	result := &provider.ListResult{}
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("type", class.String())
		query.Set("per_page", strconv.Itoa(perPage))
		query.Set("page", strconv.Itoa(page))
		path := fmt.Sprintf("/zones/%s/dns_records?%s", url.PathEscape(zoneID), query.Encode())

		var res listResponse
		if err := p.do(ctx, http.MethodGet, path, nil, &res); err != nil {
			return nil, fmt.Errorf("cloudflare: list %s records for zone %s: %w", class, zoneID, err)
		}
		result.Response = res.Response
		if !res.Success {
			result.Records = nil
			return result, nil
		}
		for _, r := range res.Result {
			result.Records = append(result.Records, r.observed(zoneID))
		}
		if res.ResultInfo == nil {
			break
		}
		result.ResultInfo = *res.ResultInfo
		if len(res.Result) == 0 || page >= res.ResultInfo.TotalPages {
			break
		}
	}
	p.logger.Sugar().Debugw(
		"listed records",
		"zone", zoneID,
		"type", class,
		"count", len(result.Records),
	)
	return result, nil
}

func (p *cloudflareProvider) CreateRecord(ctx context.Context, zoneID string, desired record.DesiredRecord) (*provider.RecordResult, error) {
	path := fmt.Sprintf("/zones/%s/dns_records", url.PathEscape(zoneID))
	var res singleResponse
	if err := p.do(ctx, http.MethodPost, path, requestBody(desired.Content, desired), &res); err != nil {
		return nil, fmt.Errorf("cloudflare: create record %s for zone %s: %w", desired.Name, zoneID, err)
	}
	return recordResult(zoneID, res), nil
}

func (p *cloudflareProvider) UpdateRecord(
	ctx context.Context,
	zoneID string,
	providerID string,
	content string,
	desired record.DesiredRecord,
) (*provider.RecordResult, error) {
	path := fmt.Sprintf("/zones/%s/dns_records/%s", url.PathEscape(zoneID), url.PathEscape(providerID))
	var res singleResponse
	if err := p.do(ctx, http.MethodPut, path, requestBody(content, desired), &res); err != nil {
		return nil, fmt.Errorf("cloudflare: update record %s for zone %s: %w", providerID, zoneID, err)
	}
	return recordResult(zoneID, res), nil
}

func recordResult(zoneID string, res singleResponse) *provider.RecordResult {
	result := &provider.RecordResult{Response: res.Response}
	if res.Success && res.Result != nil {
		observed := res.Result.observed(zoneID)
		result.Record = &observed
	}
	return result
}

// do sends a request and decodes the response envelope into out. Only
// failures to reach the API or to decode its answer are returned as errors.
func (p *cloudflareProvider) do(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.config.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.BearerToken)
	}
	if p.config.Email != "" {
		req.Header.Set("X-Auth-Email", p.config.Email)
	}
	if p.config.APIKey != "" {
		req.Header.Set("X-Auth-Key", p.config.APIKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	// An error status without any reported errors still has to surface
	// something to log.
	if envelope, ok := out.(interface{ envelope() *provider.Response }); ok {
		r := envelope.envelope()
		if !r.Success && len(r.Errors) == 0 && resp.StatusCode >= http.StatusBadRequest {
			r.Errors = append(r.Errors, provider.ResponseError{
				Code:    resp.StatusCode,
				Message: http.StatusText(resp.StatusCode),
			})
		}
	}
	return nil
}

func (r *listResponse) envelope() *provider.Response   { return &r.Response }
func (r *singleResponse) envelope() *provider.Response { return &r.Response }
