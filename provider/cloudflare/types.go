package cloudflare

import (
	"time"

	"github.com/sapslaj/dynip/provider"
	"github.com/sapslaj/dynip/record"
)

// dnsRecord is a DNS record as sent to and returned by the Cloudflare API.
type dnsRecord struct {
	ID         string     `json:"id,omitempty"`
	ZoneID     string     `json:"zone_id,omitempty"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Content    string     `json:"content"`
	Proxied    bool       `json:"proxied"`
	TTL        int        `json:"ttl"`
	Comment    *string    `json:"comment,omitempty"`
	Tags       []string   `json:"tags"`
	CreatedOn  *time.Time `json:"created_on,omitempty"`
	ModifiedOn *time.Time `json:"modified_on,omitempty"`
}

func (r dnsRecord) observed(zoneID string) record.ObservedRecord {
	o := record.ObservedRecord{
		ProviderID: r.ID,
		ZoneID:     r.ZoneID,
		Name:       r.Name,
		Class:      record.Class(r.Type),
		Content:    r.Content,
		Proxied:    r.Proxied,
		TTL:        r.TTL,
		Tags:       r.Tags,
	}
	if o.ZoneID == "" {
		o.ZoneID = zoneID
	}
	if r.Comment != nil {
		o.Comment = *r.Comment
	}
	if r.CreatedOn != nil {
		o.CreatedOn = *r.CreatedOn
	}
	if r.ModifiedOn != nil {
		o.ModifiedOn = *r.ModifiedOn
	}
	return o
}

func requestBody(content string, desired record.DesiredRecord) dnsRecord {
	body := dnsRecord{
		Name:    desired.Name,
		Type:    desired.Class.String(),
		Content: content,
		Proxied: desired.Proxied,
		TTL:     desired.TTL,
		Tags:    desired.Tags,
	}
	if body.Tags == nil {
		body.Tags = []string{}
	}
	if desired.Comment != "" {
		comment := desired.Comment
		body.Comment = &comment
	}
	return body
}

type listResponse struct {
	provider.Response
	Result     []dnsRecord          `json:"result"`
	ResultInfo *provider.ResultInfo `json:"result_info"`
}

type singleResponse struct {
	provider.Response
	Result *dnsRecord `json:"result"`
}
