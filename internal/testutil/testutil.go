// Package testutil holds fixtures shared by handler and command tests:
// small filled grids, saved histogram files and HTTP request helpers.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/histogram"
	"github.com/banshee-data/mdspace/internal/units"
	"github.com/banshee-data/mdspace/internal/workspace"
)

// GeneralDimensions returns one General-frame dimension per entry of bins,
// named x, y, z, ... and spanning [0, bins[i]) so every bin is one unit wide.
func GeneralDimensions(t testing.TB, bins ...int) []*geometry.Dimension {
	t.Helper()
	dims := make([]*geometry.Dimension, len(bins))
	for i, n := range bins {
		id := string(rune('x' + i))
		d, err := geometry.NewDimension(id, id, geometry.NewGeneralFrame("", units.NewLabel("mm")), 0, float64(n), n)
		require.NoError(t, err)
		dims[i] = d
	}
	return dims
}

// FilledGrid returns a grid over GeneralDimensions(bins...) where cell i
// holds signal i+1, error squared 1 and one event.
func FilledGrid(t testing.TB, bins ...int) *histogram.Grid {
	t.Helper()
	g, err := histogram.New(GeneralDimensions(t, bins...)...)
	require.NoError(t, err)
	for i := 0; i < g.NPoints(); i++ {
		g.SetSignalAt(i, float64(i+1))
		g.SetErrorSquaredAt(i, 1)
		g.SetNumEventsAt(i, 1)
	}
	return g
}

// WriteHistogram saves FilledGrid(bins...) to dir/name and returns the path.
func WriteHistogram(t testing.TB, dir, name string, bins ...int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, workspace.SaveHistogram(path, name, FilledGrid(t, bins...), nil))
	return path
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
