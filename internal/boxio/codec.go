package boxio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/banshee-data/mdspace/internal/boxtree"
)

// RecordSize is the encoded size of one event with nd coordinates:
// signal, squared error, run index, detector id, then the centre.
func RecordSize(nd int) int { return 8 + 8 + 2 + 4 + 8*nd }

// EncodeEvents appends the little-endian records of events to dst.
func EncodeEvents(dst []byte, events []boxtree.Event, nd int) []byte {
	rec := RecordSize(nd)
	start := len(dst)
	need := start + rec*len(events)
	if cap(dst) < need {
		grown := make([]byte, start, need)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:need]
	p := dst[start:]
	for i := range events {
		e := &events[i]
		binary.LittleEndian.PutUint64(p[0:], math.Float64bits(e.Signal))
		binary.LittleEndian.PutUint64(p[8:], math.Float64bits(e.ErrorSquared))
		binary.LittleEndian.PutUint16(p[16:], e.RunIndex)
		binary.LittleEndian.PutUint32(p[18:], uint32(e.DetectorID))
		for d := 0; d < nd; d++ {
			binary.LittleEndian.PutUint64(p[22+8*d:], math.Float64bits(e.Center[d]))
		}
		p = p[rec:]
	}
	return dst
}

// DecodeEvents parses records written by EncodeEvents.
func DecodeEvents(src []byte, nd int) ([]boxtree.Event, error) {
	rec := RecordSize(nd)
	if len(src)%rec != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of %d-byte records", len(src), rec)
	}
	n := len(src) / rec
	events := make([]boxtree.Event, n)
	centers := make([]float64, n*nd)
	for i := range events {
		p := src[i*rec:]
		c := centers[i*nd : (i+1)*nd : (i+1)*nd]
		for d := range c {
			c[d] = math.Float64frombits(binary.LittleEndian.Uint64(p[22+8*d:]))
		}
		events[i] = boxtree.Event{
			Signal:       math.Float64frombits(binary.LittleEndian.Uint64(p[0:])),
			ErrorSquared: math.Float64frombits(binary.LittleEndian.Uint64(p[8:])),
			RunIndex:     binary.LittleEndian.Uint16(p[16:]),
			DetectorID:   int32(binary.LittleEndian.Uint32(p[18:])),
			Center:       c,
		}
	}
	return events, nil
}

// FlatWidth is the number of float64 columns per event in a flattened slab.
func FlatWidth(nd int) int { return nd + 4 }

// FlattenEvents lays events out as rows of FlatWidth(nd) float64 values in
// the same column order as the binary records, for numeric slab storage.
func FlattenEvents(events []boxtree.Event, nd int) []float64 {
	w := FlatWidth(nd)
	out := make([]float64, len(events)*w)
	for i := range events {
		row := out[i*w : (i+1)*w]
		e := &events[i]
		row[0] = e.Signal
		row[1] = e.ErrorSquared
		row[2] = float64(e.RunIndex)
		row[3] = float64(e.DetectorID)
		copy(row[4:], e.Center)
	}
	return out
}

// UnflattenEvents reverses FlattenEvents.
func UnflattenEvents(data []float64, nd int) ([]boxtree.Event, error) {
	w := FlatWidth(nd)
	if len(data)%w != 0 {
		return nil, fmt.Errorf("%d values is not a whole number of %d-column rows", len(data), w)
	}
	n := len(data) / w
	events := make([]boxtree.Event, n)
	for i := range events {
		row := data[i*w : (i+1)*w]
		events[i] = boxtree.Event{
			Signal:       row[0],
			ErrorSquared: row[1],
			RunIndex:     uint16(row[2]),
			DetectorID:   int32(row[3]),
			Center:       append([]float64(nil), row[4:]...),
		}
	}
	return events, nil
}
