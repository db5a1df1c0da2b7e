package boxtree

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/histogram"
)

func newTestTree(t *testing.T, nd, threshold, into, maxDepth int) *Tree {
	t.Helper()
	c := NewController(nd)
	c.SetSplitThreshold(threshold)
	c.SetSplitInto(into)
	c.SetMaxDepth(maxDepth)
	extents := make([]Extent, nd)
	for d := range extents {
		extents[d] = Extent{Min: -10, Max: 10}
	}
	tree, err := New(c, extents)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tree
}

func uniformEvents(rng *rand.Rand, n, nd int, lo, hi float64) []Event {
	events := make([]Event, n)
	for i := range events {
		c := make([]float64, nd)
		for d := range c {
			c[d] = lo + rng.Float64()*(hi-lo)
		}
		events[i] = Event{Signal: 1, ErrorSquared: 1, Center: c}
	}
	return events
}

func TestNewRejectsBadExtents(t *testing.T) {
	c := NewController(2)
	if _, err := New(c, []Extent{{0, 1}}); !errors.Is(err, ErrDimensionality) {
		t.Errorf("err = %v, want ErrDimensionality", err)
	}
	if _, err := New(c, []Extent{{0, 1}, {2, 1}}); !errors.Is(err, ErrDimensionality) {
		t.Errorf("inverted extent err = %v, want ErrDimensionality", err)
	}
}

func TestAddEvent(t *testing.T) {
	tree := newTestTree(t, 2, 100, 2, 5)
	if err := tree.AddEvent(Event{Signal: 1, Center: []float64{0, 0}}); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddEvent(Event{Signal: 1, Center: []float64{10, 10}}); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddEvent(Event{Signal: 1, Center: []float64{11, 0}}); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddEvent(Event{Signal: 1, Center: []float64{math.NaN(), 0}}); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddEvent(Event{Center: []float64{0}}); !errors.Is(err, ErrDimensionality) {
		t.Errorf("err = %v, want ErrDimensionality", err)
	}
	if got := tree.NumEvents(); got != 2 {
		t.Errorf("NumEvents = %d, want 2", got)
	}
	if got := tree.Dropped(); got != 2 {
		t.Errorf("Dropped = %d, want 2", got)
	}
}

func TestSplitConservesEvents(t *testing.T) {
	tree := newTestTree(t, 2, 10, 3, 6)
	rng := rand.New(rand.NewSource(1))
	events := uniformEvents(rng, 300, 2, -10, 10)
	events = append(events,
		Event{Center: []float64{10, 10}},
		Event{Center: []float64{-10, -10}},
		Event{Center: []float64{10, -10}},
	)
	for i := range events {
		events[i].Signal = float64(i)
	}
	if _, err := tree.AddEvents(events); err != nil {
		t.Fatal(err)
	}
	if err := tree.SplitIfNeeded(tree.Root(), nil); err != nil {
		t.Fatalf("SplitIfNeeded: %v", err)
	}
	if tree.Root().IsLeaf() {
		t.Fatal("root did not split")
	}

	seen := make(map[float64]int)
	for _, leaf := range tree.Leaves() {
		evs, err := leaf.Events()
		if err != nil {
			t.Fatal(err)
		}
		ext := leaf.Extents()
		for _, e := range evs {
			seen[e.Signal]++
			if !containsAll(ext, e.Center) {
				t.Errorf("event %v outside leaf extents %v", e.Center, ext)
			}
		}
	}
	if len(seen) != len(events) {
		t.Errorf("found %d distinct events, want %d", len(seen), len(events))
	}
	for sig, n := range seen {
		if n != 1 {
			t.Errorf("event %v seen %d times", sig, n)
		}
	}
}

func TestSplitIfNeededIsIdempotent(t *testing.T) {
	tree := newTestTree(t, 2, 4, 2, 3)
	rng := rand.New(rand.NewSource(2))
	if _, err := tree.AddEvents(uniformEvents(rng, 3, 2, -10, 10)); err != nil {
		t.Fatal(err)
	}
	if err := tree.SplitIfNeeded(tree.Root(), nil); err != nil {
		t.Fatal(err)
	}
	if !tree.Root().IsLeaf() {
		t.Fatal("root below threshold split")
	}

	if _, err := tree.AddEvents(uniformEvents(rng, 10, 2, -10, 10)); err != nil {
		t.Fatal(err)
	}
	if err := tree.SplitAll(2); err != nil {
		t.Fatal(err)
	}
	leaves, grids := tree.BoxCount()
	if err := tree.SplitAll(2); err != nil {
		t.Fatal(err)
	}
	l2, g2 := tree.BoxCount()
	if l2 != leaves || g2 != grids {
		t.Errorf("second split changed counts: %d/%d -> %d/%d", leaves, grids, l2, g2)
	}
	if int64(len(tree.Leaves())) != leaves {
		t.Errorf("controller counts %d leaves, tree has %d", leaves, len(tree.Leaves()))
	}
}

func TestScenarioUniformSplit(t *testing.T) {
	tree := newTestTree(t, 3, 1500, 5, 20)
	rng := rand.New(rand.NewSource(3))
	const weight = 2.5
	events := uniformEvents(rng, 3000, 3, -10, 10)
	for i := range events {
		events[i].Signal = weight
	}
	if err := tree.AddEventsParallel(events, 4); err != nil {
		t.Fatal(err)
	}
	if err := tree.SplitAll(4); err != nil {
		t.Fatal(err)
	}
	tree.RefreshCache()

	if got := tree.Signal(); got != 3000*weight {
		t.Errorf("root signal = %v, want %v", got, 3000*weight)
	}
	if got := tree.Root().CachedNumEvents(); got != 3000 {
		t.Errorf("root events = %d, want 3000", got)
	}
	for _, leaf := range tree.Leaves() {
		if leaf.NumEvents() > 1500 && leaf.Depth() < 20 {
			t.Errorf("leaf %d at depth %d holds %d events", leaf.ID(), leaf.Depth(), leaf.NumEvents())
		}
	}
}

func TestMaxDepthStopsSplitting(t *testing.T) {
	tree := newTestTree(t, 1, 1, 2, 2)
	events := make([]Event, 10)
	for i := range events {
		events[i] = Event{Signal: 1, Center: []float64{1}}
	}
	if _, err := tree.AddEvents(events); err != nil {
		t.Fatal(err)
	}
	if err := tree.SplitAll(1); err != nil {
		t.Fatal(err)
	}
	leaf := tree.LeafAt([]float64{1})
	if leaf.Depth() != 2 || leaf.NumEvents() != 10 {
		t.Errorf("leaf depth %d events %d, want depth 2 with 10 events", leaf.Depth(), leaf.NumEvents())
	}
	if tree.Controller().MaxDepthReached() != 2 {
		t.Errorf("MaxDepthReached = %d", tree.Controller().MaxDepthReached())
	}
}

func TestAggregatesMatchChildren(t *testing.T) {
	tree := newTestTree(t, 2, 5, 2, 8)
	rng := rand.New(rand.NewSource(4))
	events := uniformEvents(rng, 500, 2, -10, 10)
	for i := range events {
		events[i].Signal = rng.Float64() * 3
	}
	if _, err := tree.AddEvents(events); err != nil {
		t.Fatal(err)
	}
	if err := tree.SplitAll(3); err != nil {
		t.Fatal(err)
	}
	tree.RefreshCache()

	tree.Walk(func(b *Box) bool {
		children := b.Children()
		if children == nil {
			return false
		}
		var sum float64
		for _, c := range children {
			sum += c.Signal()
		}
		if math.Abs(sum-b.Signal()) > 1e-9 {
			t.Errorf("box %d signal %v, children sum %v", b.ID(), b.Signal(), sum)
		}
		return true
	})

	var total float64
	for _, e := range events {
		total += e.Signal
	}
	if math.Abs(tree.Signal()-total) > 1e-9 {
		t.Errorf("root signal %v, want %v", tree.Signal(), total)
	}
}

func TestSplitToMinDepth(t *testing.T) {
	tree := newTestTree(t, 2, 1000, 2, 10)
	tree.Controller().SetMinDepth(2)
	if err := tree.SplitToMinDepth(2); err != nil {
		t.Fatal(err)
	}
	if got := len(tree.Leaves()); got != 16 {
		t.Errorf("leaves = %d, want 16", got)
	}
	for _, leaf := range tree.Leaves() {
		if leaf.Depth() != 2 {
			t.Errorf("leaf depth %d, want 2", leaf.Depth())
		}
	}
}

func TestLeafAtAndCentroid(t *testing.T) {
	tree := newTestTree(t, 2, 1, 2, 4)
	if _, err := tree.AddEvents([]Event{
		{Signal: 1, Center: []float64{-5, -5}},
		{Signal: 3, Center: []float64{5, 5}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := tree.SplitAll(1); err != nil {
		t.Fatal(err)
	}
	tree.RefreshCache()

	leaf := tree.LeafAt([]float64{5, 5})
	if leaf == nil || leaf.NumEvents() != 1 {
		t.Fatalf("LeafAt(5,5) = %v", leaf)
	}
	if tree.LeafAt([]float64{20, 0}) != nil {
		t.Error("LeafAt outside root should be nil")
	}
	c := tree.Centroid()
	if c[0] != 2.5 || c[1] != 2.5 {
		t.Errorf("Centroid = %v, want [2.5 2.5]", c)
	}
}

func TestIntegrateFunction(t *testing.T) {
	tree := newTestTree(t, 3, 10, 2, 5)
	rng := rand.New(rand.NewSource(5))
	events := uniformEvents(rng, 400, 3, -10, 10)
	if _, err := tree.AddEvents(events); err != nil {
		t.Fatal(err)
	}
	if err := tree.SplitAll(2); err != nil {
		t.Fatal(err)
	}
	tree.RefreshCache()

	fn := histogram.BoxFunction{Min: []float64{-10, -10, -10}, Max: []float64{0, 10, 10}}
	want := 0.0
	for _, e := range events {
		if fn.IsPointContained(e.Center) {
			want += e.Signal
		}
	}
	sig, errSq, err := tree.IntegrateFunction(fn)
	if err != nil {
		t.Fatal(err)
	}
	if sig != want || errSq != want {
		t.Errorf("IntegrateFunction = %v/%v, want %v", sig, errSq, want)
	}
}

func TestBinTo(t *testing.T) {
	tree := newTestTree(t, 2, 20, 2, 5)
	rng := rand.New(rand.NewSource(6))
	events := uniformEvents(rng, 1000, 2, -10, 10)
	if _, err := tree.AddEvents(events); err != nil {
		t.Fatal(err)
	}
	if err := tree.SplitAll(2); err != nil {
		t.Fatal(err)
	}

	g, err := histogram.New(
		geometry.MustDimension("x", "X", nil, -10, 10, 4),
		geometry.MustDimension("y", "Y", nil, -10, 10, 4),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.BinTo(g, 3); err != nil {
		t.Fatal(err)
	}
	if got := g.TotalSignal(); got != 1000 {
		t.Errorf("TotalSignal = %v, want 1000", got)
	}
	want := 0.0
	for _, e := range events {
		if e.Center[0] < -5 && e.Center[1] < -5 {
			want++
		}
	}
	if got := g.SignalAt(0); got != want {
		t.Errorf("cell 0 = %v, want %v", got, want)
	}

	flat, _ := histogram.New(geometry.MustDimension("x", "X", nil, 0, 1, 1))
	if err := tree.BinTo(flat, 1); !errors.Is(err, ErrDimensionality) {
		t.Errorf("err = %v, want ErrDimensionality", err)
	}
}
