package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/sapslaj/dynip/record"
)

// Provider defines the interface DNS provider clients should implement. A
// non-nil error means the call failed in transport (network failure,
// malformed payload); a provider that answered with a failure reports it
// through Success and Errors instead.
type Provider interface {
	ListRecords(ctx context.Context, zoneID string, class record.Class) (*ListResult, error)
	CreateRecord(ctx context.Context, zoneID string, desired record.DesiredRecord) (*RecordResult, error)
	UpdateRecord(ctx context.Context, zoneID, providerID, content string, desired record.DesiredRecord) (*RecordResult, error)
}

// ResponseError is an error or message reported by a provider.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e ResponseError) String() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Response is the envelope shared by every provider answer.
type Response struct {
	Success  bool            `json:"success"`
	Errors   []ResponseError `json:"errors"`
	Messages []ResponseError `json:"messages"`
}

// ErrorString joins all reported errors into one line for logging.
func (r Response) ErrorString() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// ResultInfo describes paging of a list answer.
type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// ListResult is the answer to ListRecords.
type ListResult struct {
	Response
	Records    []record.ObservedRecord
	ResultInfo ResultInfo
}

// RecordResult is the answer to CreateRecord and UpdateRecord. Record is set
// when Success is true.
type RecordResult struct {
	Response
	Record *record.ObservedRecord
}
