package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sapslaj/dynip/engine"
	"github.com/sapslaj/dynip/record"
)

func TestReportInventory_PreconditionErrorsAreNotFatal(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	inventory := map[string][]record.DesiredRecord{
		"zone1": {{Name: "example.com", Class: record.ClassA, ProviderID: "seeded-1", TTL: 1}},
	}
	err := multierr.Combine(
		&engine.PreconditionError{Zone: "zone1", Name: "www.example.com", Class: record.ClassA, Err: engine.ErrNoAddress},
		&engine.PreconditionError{Zone: "zone1", Name: "vpn.example.com", Class: record.ClassCNAME, Err: engine.ErrNoAddress},
	)

	var tracked int
	require.NotPanics(t, func() {
		tracked = reportInventory(zap.New(core), 1, inventory, err, "")
	})
	assert.Equal(t, 1, tracked)

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorLogs, 2)
	assert.Contains(t, errorLogs[0].ContextMap()["err"], "www.example.com")

	summary := logs.FilterMessage("record inventory initialized").All()
	require.Len(t, summary, 1)
	assert.Equal(t, int64(1), summary[0].ContextMap()["tracked_records"])
	assert.Equal(t, int64(2), summary[0].ContextMap()["untracked_records"])
}

func TestReportInventory_NoErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tracked := reportInventory(zap.New(core), 0, map[string][]record.DesiredRecord{}, nil, "192.0.2.1")
	assert.Equal(t, 0, tracked)
	assert.Empty(t, logs.FilterLevelExact(zapcore.ErrorLevel).All())
}
