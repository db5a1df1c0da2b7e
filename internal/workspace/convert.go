package workspace

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/mdspace/internal/boxtree"
	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/monitoring"
	"github.com/banshee-data/mdspace/internal/transform"
)

var logf = monitoring.Component("ConvertToMD")

// RawEvent is one record from an event source. When Coords is set it is
// used as the destination coordinate directly; otherwise the detector and
// time-of-flight (microseconds) are converted to Q.
type RawEvent struct {
	DetectorID   int32
	TOF          float64
	Weight       float64
	ErrorSquared float64
	RunIndex     uint16
	Coords       []float64
}

// ConvertStats summarises one ConvertToMD call.
type ConvertStats struct {
	Read     int
	Added    int
	Dropped  int
	Chunks   int
	Duration time.Duration
}

// ConvertToMD converts events in chunks on a worker pool, inserts them into
// the tree, and after each round of chunks splits every box that crossed
// the threshold. Events landing outside the workspace are dropped.
func (w *EventWorkspace) ConvertToMD(ctx context.Context, events []RawEvent) (ConvertStats, error) {
	start := time.Now()
	stats := ConvertStats{Read: len(events)}

	var conv *transform.QConverter
	cs := w.SpecialCoordinateSystem()
	if needsQ(events) {
		if len(w.dims) != 3 || cs == geometry.CoordNone {
			return stats, fmt.Errorf("Q conversion needs 3 Q dimensions, workspace has %d (%s): %w", len(w.dims), cs, ErrDimensionality)
		}
		var err error
		if conv, err = transform.NewQConverter(w.info, cs); err != nil {
			return stats, err
		}
	}

	workers := w.cfg.GetWorkers()
	chunk := w.cfg.GetChunkSize()
	if chunk < 1 {
		chunk = 1
	}
	round := chunk * workers
	nd := len(w.dims)
	var added atomic.Int64
	sched := boxtree.NewScheduler(workers)

	for lo := 0; lo < len(events); lo += round {
		hi := min(lo+round, len(events))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for c := lo; c < hi; c += chunk {
			part := events[c:min(c+chunk, hi)]
			stats.Chunks++
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				converted, err := convertChunk(part, nd, conv)
				if err != nil {
					return err
				}
				n, err := w.tree.AddEvents(converted)
				added.Add(int64(n))
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}

		if err := w.tree.SplitAllIfNeeded(sched); err != nil {
			return stats, err
		}
		if err := sched.Join(); err != nil {
			return stats, err
		}
	}

	w.tree.RefreshCache()
	stats.Added = int(added.Load())
	stats.Dropped = stats.Read - stats.Added
	stats.Duration = time.Since(start)
	logf("%s: %d events in %d chunks, %d added, %d outside the workspace, %v",
		w.name, stats.Read, stats.Chunks, stats.Added, stats.Dropped, stats.Duration)
	return stats, nil
}

func needsQ(events []RawEvent) bool {
	for i := range events {
		if events[i].Coords == nil {
			return true
		}
	}
	return false
}

func convertChunk(part []RawEvent, nd int, conv *transform.QConverter) ([]boxtree.Event, error) {
	out := make([]boxtree.Event, 0, len(part))
	for i := range part {
		r := &part[i]
		var center []float64
		if r.Coords != nil {
			if len(r.Coords) != nd {
				return nil, fmt.Errorf("event has %d coordinates, workspace has %d: %w", len(r.Coords), nd, ErrDimensionality)
			}
			center = append([]float64(nil), r.Coords...)
		} else {
			q, err := conv.Convert(r.DetectorID, r.TOF)
			if err != nil {
				return nil, err
			}
			center = q[:]
		}
		out = append(out, boxtree.Event{
			Signal:       r.Weight,
			ErrorSquared: r.ErrorSquared,
			Center:       center,
			RunIndex:     r.RunIndex,
			DetectorID:   r.DetectorID,
		})
	}
	return out, nil
}
