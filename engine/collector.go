package engine

import (
	"sort"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sapslaj/dynip/pkg/metrics"
)

var recordInfoLabels = []string{
	"zone",
	"name",
	"type",
	"content",
	"provider_id",
	"proxied",
	"ttl",
}

// RecordCollector exports one info metric per tracked record, built from the
// engine's most recently published status.
type RecordCollector struct {
	engine *Engine
	desc   *prometheus.Desc
}

func NewRecordCollector(e *Engine) *RecordCollector {
	return &RecordCollector{
		engine: e,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(metrics.Namespace, "", "record_info"),
			"Info metric about a tracked record",
			recordInfoLabels,
			nil,
		),
	}
}

func (c *RecordCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *RecordCollector) Collect(ch chan<- prometheus.Metric) {
	status := c.engine.Snapshot()
	zones := make([]string, 0, len(status.Zones))
	for zone := range status.Zones {
		zones = append(zones, zone)
	}
	sort.Strings(zones)

	for _, zone := range zones {
		for _, d := range status.Zones[zone] {
			metric, err := prometheus.NewConstMetric(
				c.desc,
				prometheus.GaugeValue,
				1.0,
				zone,
				d.Name,
				d.Class.String(),
				d.Content,
				d.ProviderID,
				strconv.FormatBool(d.Proxied),
				strconv.Itoa(d.TTL),
			)
			if err != nil {
				c.engine.Logger.Sugar().Errorw("could not build record metric", "zone", zone, "name", d.Name, "err", err)
				continue
			}
			ch <- metric
		}
	}
}
