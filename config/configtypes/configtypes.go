package configtypes

import (
	"context"
	"time"
)

type contextKey struct {
	name string
}

func (k *contextKey) String() string { return "dynip context value " + k.name }

// DryRun is a context key. It is used to tell components to not make any changes.
var DryRunContextKey = &contextKey{"dry-run"}

// IsDryRun reports whether ctx carries DryRunContextKey set to true.
func IsDryRun(ctx context.Context) bool {
	dryRun, ok := ctx.Value(DryRunContextKey).(bool)
	return ok && dryRun
}

const (
	DefaultIntervalMinutes = 5
	DefaultVerbosity       = 3
)

// Settings are the global options of a configuration file.
type Settings struct {
	// Minutes between address checks.
	IntervalMinutes int
	// 0 (silent) through 4 (debug).
	Verbosity int
}

func DefaultSettings() Settings {
	return Settings{
		IntervalMinutes: DefaultIntervalMinutes,
		Verbosity:       DefaultVerbosity,
	}
}

func (s Settings) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}
