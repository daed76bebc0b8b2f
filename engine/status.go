package engine

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sapslaj/dynip/record"
)

// Status is a published copy of the tracked inventory.
type Status struct {
	Address   string                            `json:"address"`
	UpdatedAt time.Time                         `json:"updated_at"`
	Zones     map[string][]record.DesiredRecord `json:"zones"`
}

// publish copies the working inventory for concurrent readers.
func (e *Engine) publish() {
	status := Status{
		Address:   e.lastAddress,
		UpdatedAt: time.Now().UTC(),
		Zones:     e.Inventory(),
	}
	for zone, records := range status.Zones {
		MetricTrackedRecords.WithLabelValues(zone).Set(float64(len(records)))
	}

	e.statusMux.Lock()
	e.status = status
	e.statusMux.Unlock()
}

// Snapshot returns the most recently published status. The zero Status is
// returned before InitializeInventory has run.
func (e *Engine) Snapshot() Status {
	e.statusMux.RLock()
	defer e.statusMux.RUnlock()
	return e.status
}

// RecordsHandler serves the published status as JSON.
func (e *Engine) RecordsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		status := e.Snapshot()
		if status.Zones == nil {
			status.Zones = map[string][]record.DesiredRecord{}
		}
		data, err := json.Marshal(status)
		if err != nil {
			e.Logger.Sugar().Errorw("could not encode status", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}
