package boxtree

import (
	"errors"
	"testing"

	"github.com/banshee-data/mdspace/internal/config"
)

func TestNewControllerDefaults(t *testing.T) {
	c := NewController(3)
	if c.SplitThreshold() != 1000 {
		t.Errorf("SplitThreshold = %d, want 1000", c.SplitThreshold())
	}
	if c.MaxDepth() != 20 {
		t.Errorf("MaxDepth = %d, want 20", c.MaxDepth())
	}
	if c.MinDepth() != 0 {
		t.Errorf("MinDepth = %d, want 0", c.MinDepth())
	}
	if c.NumSplit() != 125 {
		t.Errorf("NumSplit = %d, want 125", c.NumSplit())
	}
}

func TestNewControllerFromConfig(t *testing.T) {
	threshold, into := 50, 2
	cfg := &config.EngineConfig{SplitThreshold: &threshold, SplitInto: &into}
	c := NewControllerFromConfig(2, cfg)
	if c.SplitThreshold() != 50 || c.NumSplit() != 4 {
		t.Errorf("got threshold %d split %d", c.SplitThreshold(), c.NumSplit())
	}
	c.SetSplitIntoAt(1, 3)
	if got := c.SplitInto(); got[0] != 2 || got[1] != 3 {
		t.Errorf("SplitInto = %v", got)
	}
}

func TestControllerStringRoundTrip(t *testing.T) {
	c := NewController(2)
	c.SetSplitThreshold(7)
	c.SetSplitIntoAt(0, 4)
	c.SetMaxDepth(9)
	c.SetMinDepth(1)
	if _, err := New(c, []Extent{{0, 1}, {0, 1}}); err != nil {
		t.Fatal(err)
	}

	back, err := ParseControllerString(c.String())
	if err != nil {
		t.Fatalf("ParseControllerString: %v", err)
	}
	if back.String() != c.String() {
		t.Errorf("round trip:\n got %s\nwant %s", back.String(), c.String())
	}
	if back.NumLeaves() != 1 {
		t.Errorf("NumLeaves = %d, want 1", back.NumLeaves())
	}
}

func TestParseControllerStringErrors(t *testing.T) {
	if _, err := ParseControllerString("not json"); err == nil {
		t.Error("expected error for malformed string")
	}
	_, err := ParseControllerString(`{"num_dims":2,"split_into":[5]}`)
	if !errors.Is(err, ErrDimensionality) {
		t.Errorf("err = %v, want ErrDimensionality", err)
	}
}
