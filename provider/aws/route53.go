package aws

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/sapslaj/dynip/pkg/log"
	"github.com/sapslaj/dynip/provider"
	"github.com/sapslaj/dynip/record"
)

// Route53 has no TTL of its own choosing, so automatic TTL becomes this.
const automaticTTL = 300

type Route53ProviderConfig struct {
	Region string
}

type route53API interface {
	ListResourceRecordSets(
		ctx context.Context,
		params *route53.ListResourceRecordSetsInput,
		optFns ...func(*route53.Options),
	) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(
		ctx context.Context,
		params *route53.ChangeResourceRecordSetsInput,
		optFns ...func(*route53.Options),
	) (*route53.ChangeResourceRecordSetsOutput, error)
}

type route53Provider struct {
	config Route53ProviderConfig
	client route53API
	logger *zap.Logger
}

func NewRoute53Provider(ctx context.Context, providerConfig Route53ProviderConfig) (provider.Provider, error) {
	client, err := defaultR53Client(ctx, providerConfig.Region)
	if err != nil {
		return nil, fmt.Errorf("could not get default Route53 client: %w", err)
	}
	p := &route53Provider{
		config: providerConfig,
		client: client,
		logger: log.MustNewLogger().Named("aws_route53_provider"),
	}
	return p, nil
}

// RecordID derives a stable identifier for a record set. Route53 does not
// assign identifiers to record sets, so the hex MD5 of name and type is used.
func RecordID(name string, class record.Class) string {
	sum := md5.Sum([]byte(strings.ToLower(name) + "|" + class.String()))
	return hex.EncodeToString(sum[:])
}

func normalizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSuffix(name, "."), `\052`, "*")
}

func (p *route53Provider) ListRecords(ctx context.Context, zoneID string, class record.Class) (*provider.ListResult, error) {
	result := &provider.ListResult{}
	input := &route53.ListResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
	}
	for {
		out, err := p.client.ListResourceRecordSets(ctx, input)
		if err != nil {
			if res, ok := apiFailure(err); ok {
				result.Response = res
				return result, nil
			}
			return nil, fmt.Errorf("route53: list %s records for zone %s: %w", class, zoneID, err)
		}
		for _, rrset := range out.ResourceRecordSets {
			if string(rrset.Type) != class.String() || len(rrset.ResourceRecords) == 0 {
				continue
			}
			result.Records = append(result.Records, observed(zoneID, rrset))
		}
		if !out.IsTruncated {
			break
		}
		input.StartRecordName = out.NextRecordName
		input.StartRecordType = out.NextRecordType
		input.StartRecordIdentifier = out.NextRecordIdentifier
	}
	result.Success = true
	result.ResultInfo = provider.ResultInfo{
		Count:      len(result.Records),
		TotalCount: len(result.Records),
	}
	p.logger.Sugar().Debugw(
		"listed records",
		"zone", zoneID,
		"type", class,
		"count", len(result.Records),
	)
	return result, nil
}

func (p *route53Provider) CreateRecord(ctx context.Context, zoneID string, desired record.DesiredRecord) (*provider.RecordResult, error) {
	return p.change(ctx, zoneID, types.ChangeActionCreate, desired.Content, desired)
}

func (p *route53Provider) UpdateRecord(
	ctx context.Context,
	zoneID string,
	providerID string,
	content string,
	desired record.DesiredRecord,
) (*provider.RecordResult, error) {
	if want := RecordID(desired.Name, desired.Class); providerID != want {
		p.logger.Sugar().Warnw(
			"provider id does not belong to record set, updating by name",
			"zone", zoneID,
			"name", desired.Name,
			"id", providerID,
			"expected_id", want,
		)
	}
	return p.change(ctx, zoneID, types.ChangeActionUpsert, content, desired)
}

// change submits a single record set change. Route53 has no proxying and no
// per-record tags, so Proxied and Tags are not sent; the comment is sent as
// the change batch comment.
func (p *route53Provider) change(
	ctx context.Context,
	zoneID string,
	action types.ChangeAction,
	content string,
	desired record.DesiredRecord,
) (*provider.RecordResult, error) {
	if desired.Proxied || len(desired.Tags) > 0 {
		p.logger.Sugar().Debugw(
			"route53 does not support proxied or tags, ignoring them",
			"zone", zoneID,
			"name", desired.Name,
			"type", desired.Class,
			"proxied", desired.Proxied,
			"tags", desired.Tags,
		)
	}
	ttl := int64(desired.TTL)
	if desired.TTL == record.AutomaticTTL {
		ttl = automaticTTL
	}
	rrset := types.ResourceRecordSet{
		Name:            aws.String(desired.Name),
		Type:            types.RRType(desired.Class),
		TTL:             aws.Int64(ttl),
		ResourceRecords: []types.ResourceRecord{{Value: aws.String(content)}},
	}
	batch := &types.ChangeBatch{
		Changes: []types.Change{{Action: action, ResourceRecordSet: &rrset}},
	}
	if desired.Comment != "" {
		batch.Comment = aws.String(desired.Comment)
	}
	out, err := p.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch:  batch,
	})
	if err != nil {
		if res, ok := apiFailure(err); ok {
			return &provider.RecordResult{Response: res}, nil
		}
		return nil, fmt.Errorf("route53: %s record %s for zone %s: %w", action, desired.Name, zoneID, err)
	}

	o := observed(zoneID, rrset)
	o.Comment = desired.Comment
	if out.ChangeInfo != nil {
		o.ModifiedOn = aws.ToTime(out.ChangeInfo.SubmittedAt)
		if action == types.ChangeActionCreate {
			o.CreatedOn = o.ModifiedOn
		}
	}
	return &provider.RecordResult{
		Response: provider.Response{Success: true},
		Record:   &o,
	}, nil
}

// observed converts a record set. Proxied and Tags are always empty since
// Route53 has neither.
func observed(zoneID string, rrset types.ResourceRecordSet) record.ObservedRecord {
	name := normalizeName(aws.ToString(rrset.Name))
	class := record.Class(rrset.Type)
	o := record.ObservedRecord{
		ProviderID: RecordID(name, class),
		ZoneID:     zoneID,
		Name:       name,
		Class:      class,
		TTL:        int(aws.ToInt64(rrset.TTL)),
	}
	if len(rrset.ResourceRecords) > 0 {
		o.Content = aws.ToString(rrset.ResourceRecords[0].Value)
	}
	return o
}

// apiFailure converts an error answered by the Route53 API into an
// unsuccessful response. Errors that never reached the API are not
// converted.
func apiFailure(err error) (provider.Response, bool) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return provider.Response{}, false
	}
	return provider.Response{
		Success: false,
		Errors: []provider.ResponseError{{
			Message: apiErr.ErrorCode() + ": " + apiErr.ErrorMessage(),
		}},
	}, true
}
