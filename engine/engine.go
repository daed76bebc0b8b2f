package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sapslaj/dynip/address"
	"github.com/sapslaj/dynip/config/configtypes"
	"github.com/sapslaj/dynip/pkg/log"
	"github.com/sapslaj/dynip/provider"
	"github.com/sapslaj/dynip/record"
)

// DefaultInterval is used when Engine.Interval is not positive.
const DefaultInterval = configtypes.DefaultIntervalMinutes * time.Minute

// Zone is one provider zone as declared in configuration. The provider
// carries the zone's credentials.
type Zone struct {
	ID       string
	Provider provider.Provider
	Records  []record.DesiredRecord
}

type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// Result is the outcome of a single create or update attempt. Err is set for
// transport failures and precondition violations, Errors for failures
// reported by the provider.
type Result struct {
	Zone      string
	Name      string
	Class     record.Class
	Operation Operation
	Success   bool
	DryRun    bool
	Record    *record.ObservedRecord
	Errors    []provider.ResponseError
	Err       error
}

// zoneState is the engine's private working copy of a zone. Only tracked
// records are kept.
type zoneState struct {
	id       string
	provider provider.Provider
	records  []*record.DesiredRecord
}

type Engine struct {
	AddressSource address.Source
	// The interval between address checks
	Interval time.Duration
	// Logger instance
	Logger *zap.Logger

	zones       []*zoneState
	lastAddress string

	// statusMux guards the published copies read by the status handler and
	// the record collector.
	statusMux sync.RWMutex
	status    Status
}

func New(source address.Source, interval time.Duration) *Engine {
	return &Engine{
		AddressSource: source,
		Interval:      interval,
		Logger:        log.MustNewLogger().Named("engine"),
	}
}

// fetchAddress asks the address source for the current address. Anything
// that is not an IPv4 literal counts as unavailable.
func (e *Engine) fetchAddress(ctx context.Context) (string, error) {
	raw, err := e.AddressSource.FetchAddress(ctx)
	if err != nil {
		return "", fmt.Errorf("engine: fetch address: %w", err)
	}
	addr, err := address.ValidateIPv4(raw)
	if err != nil {
		return "", fmt.Errorf("engine: fetch address: %w", err)
	}
	return addr, nil
}

// InitializeInventory reconciles every zone with the records that already
// exist at its provider, creating those that are missing. The returned
// inventory holds the tracked records per zone and replaces whatever the
// engine tracked before. Only precondition violations are returned as
// errors; provider failures are logged and leave the record untracked.
func (e *Engine) InitializeInventory(ctx context.Context, zones []Zone) (map[string][]record.DesiredRecord, error) {
	logger := e.Logger.Sugar()

	addr, err := e.fetchAddress(ctx)
	if err != nil {
		logger.Errorw(
			"could not determine current address, records cannot be created",
			"err", err,
		)
	}
	e.lastAddress = addr
	e.zones = make([]*zoneState, 0, len(zones))

	var errs error
	for _, zone := range zones {
		if ctx.Err() != nil {
			break
		}
		zs := &zoneState{
			id:       zone.ID,
			provider: zone.Provider,
		}
		e.zones = append(e.zones, zs)
		observed := e.listObserved(ctx, zone)

		for _, desired := range zone.Records {
			if ctx.Err() != nil {
				break
			}
			working := desired.Clone()
			if o, ok := record.FindMatch(observed, working); ok {
				working.ProviderID = o.ProviderID
				working.Content = o.Content
				zs.records = append(zs.records, &working)
				logger.Infow(
					"tracking existing record",
					"zone", zs.id,
					"name", working.Name,
					"type", working.Class,
					"id", working.ProviderID,
					"content", working.Content,
				)
				if addr != "" && working.Content != addr {
					e.updateRecord(ctx, zs, &working, addr)
				}
				continue
			}

			if addr == "" {
				perr := &PreconditionError{
					Zone:  zs.id,
					Name:  working.Name,
					Class: working.Class,
					Err:   ErrNoAddress,
				}
				logger.Errorw(
					"cannot create record",
					"zone", zs.id,
					"name", working.Name,
					"type", working.Class,
					"operation", OperationCreate,
					"err", perr,
				)
				errs = multierr.Append(errs, perr)
				continue
			}
			if res := e.createRecord(ctx, zs, &working, addr); res.Success {
				zs.records = append(zs.records, &working)
			}
		}
	}

	e.publish()
	return e.Inventory(), errs
}

// listObserved lists every class used by the zone's records. Failures are
// logged and treated as no existing records.
func (e *Engine) listObserved(ctx context.Context, zone Zone) []record.ObservedRecord {
	logger := e.Logger.Sugar()
	observed := []record.ObservedRecord{}
	for _, class := range record.Classes {
		if !slices.ContainsFunc(zone.Records, func(d record.DesiredRecord) bool { return d.Class == class }) {
			continue
		}
		res, err := zone.Provider.ListRecords(ctx, zone.ID, class)
		if err != nil {
			MetricOperations.WithLabelValues("list", operationStatusError).Inc()
			logger.Errorw(
				"error listing records, treating zone as empty",
				"zone", zone.ID,
				"type", class,
				"err", err,
			)
			continue
		}
		if !res.Success {
			MetricOperations.WithLabelValues("list", operationStatusFailure).Inc()
			logger.Errorw(
				"provider failed to list records, treating zone as empty",
				"zone", zone.ID,
				"type", class,
				"errors", res.ErrorString(),
			)
			continue
		}
		MetricOperations.WithLabelValues("list", operationStatusSuccess).Inc()
		if len(res.Records) == 0 {
			logger.Infow(
				"no existing records",
				"zone", zone.ID,
				"type", class,
			)
		}
		observed = append(observed, res.Records...)
	}
	return observed
}

func (e *Engine) createRecord(ctx context.Context, zs *zoneState, d *record.DesiredRecord, addr string) Result {
	logger := e.Logger.Sugar()
	result := Result{
		Zone:      zs.id,
		Name:      d.Name,
		Class:     d.Class,
		Operation: OperationCreate,
	}
	if configtypes.IsDryRun(ctx) {
		result.DryRun = true
		MetricOperations.WithLabelValues(string(OperationCreate), operationStatusSkipped).Inc()
		logger.Infow(
			"dry run, not creating record",
			"zone", zs.id,
			"name", d.Name,
			"type", d.Class,
			"content", addr,
		)
		return result
	}

	request := d.Clone()
	request.Content = addr
	res, err := zs.provider.CreateRecord(ctx, zs.id, request)
	if err != nil {
		result.Err = err
		MetricOperations.WithLabelValues(string(OperationCreate), operationStatusError).Inc()
		logger.Errorw(
			"error creating record",
			"zone", zs.id,
			"name", d.Name,
			"type", d.Class,
			"operation", OperationCreate,
			"err", err,
		)
		return result
	}
	result.Errors = res.Errors
	if !res.Success || res.Record == nil || res.Record.ProviderID == "" {
		MetricOperations.WithLabelValues(string(OperationCreate), operationStatusFailure).Inc()
		logger.Errorw(
			"provider failed to create record",
			"zone", zs.id,
			"name", d.Name,
			"type", d.Class,
			"operation", OperationCreate,
			"errors", res.ErrorString(),
		)
		return result
	}

	result.Success = true
	result.Record = res.Record
	d.ProviderID = res.Record.ProviderID
	d.Content = addr
	MetricOperations.WithLabelValues(string(OperationCreate), operationStatusSuccess).Inc()
	logger.Infow(
		"created record",
		"zone", zs.id,
		"name", d.Name,
		"type", d.Class,
		"id", d.ProviderID,
		"content", d.Content,
	)
	return result
}

func (e *Engine) updateRecord(ctx context.Context, zs *zoneState, d *record.DesiredRecord, addr string) Result {
	logger := e.Logger.Sugar()
	result := Result{
		Zone:      zs.id,
		Name:      d.Name,
		Class:     d.Class,
		Operation: OperationUpdate,
	}
	if configtypes.IsDryRun(ctx) {
		result.DryRun = true
		MetricOperations.WithLabelValues(string(OperationUpdate), operationStatusSkipped).Inc()
		logger.Infow(
			"dry run, not updating record",
			"zone", zs.id,
			"name", d.Name,
			"type", d.Class,
			"id", d.ProviderID,
			"old_content", d.Content,
			"content", addr,
		)
		return result
	}

	res, err := zs.provider.UpdateRecord(ctx, zs.id, d.ProviderID, addr, *d)
	if err != nil {
		result.Err = err
		MetricOperations.WithLabelValues(string(OperationUpdate), operationStatusError).Inc()
		logger.Errorw(
			"error updating record",
			"zone", zs.id,
			"name", d.Name,
			"type", d.Class,
			"id", d.ProviderID,
			"operation", OperationUpdate,
			"err", err,
		)
		return result
	}
	result.Errors = res.Errors
	if !res.Success {
		MetricOperations.WithLabelValues(string(OperationUpdate), operationStatusFailure).Inc()
		logger.Errorw(
			"provider failed to update record",
			"zone", zs.id,
			"name", d.Name,
			"type", d.Class,
			"id", d.ProviderID,
			"operation", OperationUpdate,
			"errors", res.ErrorString(),
		)
		return result
	}

	result.Success = true
	result.Record = res.Record
	d.Content = addr
	MetricOperations.WithLabelValues(string(OperationUpdate), operationStatusSuccess).Inc()
	logger.Infow(
		"updated record",
		"zone", zs.id,
		"name", d.Name,
		"type", d.Class,
		"id", d.ProviderID,
		"content", d.Content,
	)
	return result
}

// Tick runs a single iteration of the poll loop. When the address changed
// since the last tick every tracked record is updated; a failed update
// leaves that record's content stale so it is retried on the next change.
func (e *Engine) Tick(ctx context.Context) []Result {
	logger := e.Logger.Sugar()
	start := time.Now()
	defer func() {
		MetricLastTickTimestamp.SetToCurrentTime()
		MetricTickDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	addr, err := e.fetchAddress(ctx)
	if err != nil {
		MetricTicks.WithLabelValues(tickStatusAddressError).Inc()
		logger.Warnw(
			"address temporarily unavailable",
			"err", err,
		)
		return nil
	}
	if addr == e.lastAddress {
		MetricTicks.WithLabelValues(tickStatusUnchanged).Inc()
		logger.Debugw(
			"address unchanged",
			"address", addr,
		)
		return nil
	}

	MetricTicks.WithLabelValues(tickStatusChanged).Inc()
	MetricAddressChanges.Inc()
	logger.Infow(
		"address changed",
		"old_address", e.lastAddress,
		"address", addr,
	)

	results := []Result{}
	for _, zs := range e.zones {
		for _, d := range zs.records {
			if ctx.Err() != nil {
				logger.Infow("tick canceled", "err", ctx.Err())
				e.publish()
				return results
			}
			results = append(results, e.updateRecord(ctx, zs, d, addr))
		}
	}
	e.lastAddress = addr
	e.publish()
	return results
}

// RunForever ticks every Interval until ctx is canceled.
func (e *Engine) RunForever(ctx context.Context) {
	interval := e.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	for {
		e.Tick(ctx)
		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			e.Logger.Info("Terminating poll loop")
			return
		}
	}
}

// Inventory returns a copy of the tracked records per zone.
func (e *Engine) Inventory() map[string][]record.DesiredRecord {
	inventory := make(map[string][]record.DesiredRecord, len(e.zones))
	for _, zs := range e.zones {
		records := make([]record.DesiredRecord, 0, len(zs.records))
		for _, d := range zs.records {
			records = append(records, d.Clone())
		}
		inventory[zs.id] = append(inventory[zs.id], records...)
	}
	return inventory
}

// LastAddress is the address the tracked records were last pushed with.
func (e *Engine) LastAddress() string {
	return e.lastAddress
}
