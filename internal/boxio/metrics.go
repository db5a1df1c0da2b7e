package boxio

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the DiskBuffer counters. Collectors built with a nil
// registerer are live but unregistered.
type Metrics struct {
	PageIns        prometheus.Counter
	SharedPageIns  prometheus.Counter
	Evictions      prometheus.Counter
	EventsWritten  prometheus.Counter
	EventsRead     prometheus.Counter
	ResidentEvents prometheus.Gauge
	FreeEvents     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PageIns: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mdspace", Subsystem: "diskbuffer", Name: "page_ins_total",
			Help: "Leaf page-ins read from the backing store.",
		}),
		SharedPageIns: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mdspace", Subsystem: "diskbuffer", Name: "shared_page_ins_total",
			Help: "Page-in requests served by an in-flight read of the same box.",
		}),
		Evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mdspace", Subsystem: "diskbuffer", Name: "evictions_total",
			Help: "Leaves whose events were dropped from memory.",
		}),
		EventsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mdspace", Subsystem: "diskbuffer", Name: "events_written_total",
			Help: "Events written to the backing store.",
		}),
		EventsRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mdspace", Subsystem: "diskbuffer", Name: "events_read_total",
			Help: "Events read from the backing store.",
		}),
		ResidentEvents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "mdspace", Subsystem: "diskbuffer", Name: "resident_events",
			Help: "Events held in memory by tracked boxes.",
		}),
		FreeEvents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "mdspace", Subsystem: "diskbuffer", Name: "free_events",
			Help: "Released event slots available for reuse.",
		}),
	}
}
