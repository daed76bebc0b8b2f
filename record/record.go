package record

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/multierr"
)

const (
	// MaxNameLength is the longest record name a provider accepts.
	MaxNameLength = 255
	// MaxProviderIDLength is the longest provider assigned identifier.
	MaxProviderIDLength = 32
	// AutomaticTTL asks the provider to choose the TTL.
	AutomaticTTL = 1
	MinTTL       = 60
	MaxTTL       = 86400
)

// ErrValidation is wrapped by every error returned from NewDesiredRecord.
var ErrValidation = errors.New("record: validation failed")

// Class is the DNS record type of a tracked record.
type Class string

const (
	ClassA     Class = "A"
	ClassCNAME Class = "CNAME"
)

// Classes lists every supported record class in listing order.
var Classes = []Class{ClassA, ClassCNAME}

// ParseClass converts a record type string into a Class.
func ParseClass(s string) (Class, error) {
	c := Class(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(Classes, c) {
		return "", fmt.Errorf("%w: record type %q must be one of 'A' or 'CNAME'", ErrValidation, s)
	}
	return c, nil
}

func (c Class) String() string {
	return string(c)
}

// Key is the identity of a record at a provider: two records with the same
// key are the same logical record regardless of their content.
type Key struct {
	Name  string
	Class Class
}

func (k Key) String() string {
	return k.Name + "/" + string(k.Class)
}

// Params holds the raw, unvalidated fields of a desired record as read from
// configuration.
type Params struct {
	Name       string
	Type       string
	Content    string
	Proxied    bool
	Comment    string
	ProviderID string
	Tags       []string
	TTL        int
}

// DesiredRecord is one entry in the configured inventory. Values are only
// produced by NewDesiredRecord, so every DesiredRecord satisfies the field
// constraints.
type DesiredRecord struct {
	Name  string `json:"name"`
	Class Class  `json:"type"`
	// Content is empty until the record has been reconciled with the
	// provider at least once.
	Content string `json:"content,omitempty"`
	Proxied bool   `json:"proxied"`
	Comment string `json:"comment,omitempty"`
	// ProviderID is empty until the record is known to exist at the
	// provider.
	ProviderID string   `json:"id,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	TTL        int      `json:"ttl"`
}

// NewDesiredRecord validates p and builds a DesiredRecord from it. A TTL of
// zero is treated as AutomaticTTL. All violations are reported together.
func NewDesiredRecord(p Params) (DesiredRecord, error) {
	var err error

	if p.Name == "" {
		err = multierr.Append(err, fmt.Errorf("%w: name must not be empty", ErrValidation))
	}
	if n := utf8.RuneCountInString(p.Name); n > MaxNameLength {
		err = multierr.Append(err, fmt.Errorf(
			"%w: name must be at most %d characters (got %d)",
			ErrValidation, MaxNameLength, n,
		))
	}
	class, classErr := ParseClass(p.Type)
	err = multierr.Append(err, classErr)
	if len(p.ProviderID) > MaxProviderIDLength {
		err = multierr.Append(err, fmt.Errorf(
			"%w: id must be at most %d characters (got %d)",
			ErrValidation, MaxProviderIDLength, len(p.ProviderID),
		))
	}
	ttl := p.TTL
	if ttl == 0 {
		ttl = AutomaticTTL
	}
	if !ValidTTL(ttl) {
		err = multierr.Append(err, fmt.Errorf(
			"%w: ttl must be %d for automatic, or between %d and %d (got %d)",
			ErrValidation, AutomaticTTL, MinTTL, MaxTTL, ttl,
		))
	}
	if err != nil {
		return DesiredRecord{}, err
	}

	return DesiredRecord{
		Name:       p.Name,
		Class:      class,
		Content:    p.Content,
		Proxied:    p.Proxied,
		Comment:    p.Comment,
		ProviderID: p.ProviderID,
		Tags:       normalizeTags(p.Tags),
		TTL:        ttl,
	}, nil
}

// ValidTTL reports whether ttl is AutomaticTTL or within [MinTTL, MaxTTL].
func ValidTTL(ttl int) bool {
	return ttl == AutomaticTTL || (ttl >= MinTTL && ttl <= MaxTTL)
}

// Key returns the matching key of the record.
func (d DesiredRecord) Key() Key {
	return Key{Name: d.Name, Class: d.Class}
}

// Tracked reports whether the record is known to exist at the provider.
func (d DesiredRecord) Tracked() bool {
	return d.ProviderID != ""
}

// Clone returns a copy that shares no memory with d.
func (d DesiredRecord) Clone() DesiredRecord {
	d.Tags = slices.Clone(d.Tags)
	return d
}

// Tags are a set: duplicates are dropped and the order is made stable.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := slices.Clone(tags)
	slices.Sort(out)
	return slices.Compact(out)
}

// ObservedRecord is a read-only snapshot of a record as reported by a
// provider.
type ObservedRecord struct {
	ProviderID string    `json:"id"`
	ZoneID     string    `json:"zone_id"`
	Name       string    `json:"name"`
	Class      Class     `json:"type"`
	Content    string    `json:"content"`
	Proxied    bool      `json:"proxied"`
	TTL        int       `json:"ttl"`
	CreatedOn  time.Time `json:"created_on"`
	ModifiedOn time.Time `json:"modified_on"`
	Comment    string    `json:"comment,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
}

// Key returns the matching key of the observed record.
func (o ObservedRecord) Key() Key {
	return Key{Name: o.Name, Class: o.Class}
}

// Matches reports whether o and d describe the same logical record. Only the
// name and class are compared; content, proxied status and TTL are mutable
// attributes of the same record.
func Matches(o ObservedRecord, d DesiredRecord) bool {
	return o.Name == d.Name && o.Class == d.Class
}

// FindMatch returns the first observed record matching d.
func FindMatch(observed []ObservedRecord, d DesiredRecord) (ObservedRecord, bool) {
	for _, o := range observed {
		if Matches(o, d) {
			return o, true
		}
	}
	return ObservedRecord{}, false
}
