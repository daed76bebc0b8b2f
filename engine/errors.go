package engine

import (
	"errors"
	"fmt"

	"github.com/sapslaj/dynip/record"
)

// ErrNoAddress is returned when a record has to be created while the current
// address is unknown.
var ErrNoAddress = errors.New("current address is unknown")

// PreconditionError marks a creation attempt that could not be made at all.
// Unlike provider failures it points at an ordering problem, not at the
// provider.
type PreconditionError struct {
	Zone  string
	Name  string
	Class record.Class
	Err   error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("engine: cannot create %s record %s in zone %s: %v", e.Class, e.Name, e.Zone, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}
