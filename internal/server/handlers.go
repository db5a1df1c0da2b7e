package server

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/histogram"
	"github.com/banshee-data/mdspace/internal/render"
	"github.com/banshee-data/mdspace/internal/security"
	"github.com/banshee-data/mdspace/internal/slabstore"
	"github.com/banshee-data/mdspace/internal/transform"
	"github.com/banshee-data/mdspace/internal/workspace"
)

type dimensionJSON struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Frame string  `json:"frame"`
	Units string  `json:"units"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Bins  int     `json:"bins"`
}

type latticeJSON struct {
	A, B, C            float64
	Alpha, Beta, Gamma float64
	UB                 [3][3]float64 `json:"ub"`
}

type summaryJSON struct {
	File             string          `json:"file"`
	Kind             string          `json:"kind"`
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	CoordinateSystem string          `json:"coordinate_system"`
	Dimensions       []dimensionJSON `json:"dimensions"`
	QConvention      string          `json:"q_convention,omitempty"`
	Goniometer       string          `json:"goniometer,omitempty"`
	Instrument       string          `json:"instrument,omitempty"`
	Pixels           int             `json:"pixels,omitempty"`
	Lattice          *latticeJSON    `json:"lattice,omitempty"`
	// Histogram-only fields.
	Cells                int      `json:"cells,omitempty"`
	TotalSignal          *float64 `json:"total_signal,omitempty"`
	DisplayNormalization string   `json:"display_normalization,omitempty"`
}

func newSummaryJSON(file string, s *workspace.Summary) summaryJSON {
	out := summaryJSON{
		File:             file,
		Kind:             s.Kind,
		ID:               s.ID.String(),
		Name:             s.Name,
		CoordinateSystem: s.CoordinateSystem.String(),
		Dimensions:       dimensionsJSON(s.Dimensions),
	}
	if info := s.Info; info != nil {
		out.QConvention = info.QConvention
		if info.Goniometer != nil && len(info.Goniometer.Axes()) > 0 {
			out.Goniometer = info.Goniometer.String()
		}
		if info.Instrument != nil {
			out.Instrument = info.Instrument.Name
			out.Pixels = len(info.Instrument.Pixels)
		}
		if info.Lattice != nil {
			out.Lattice = newLatticeJSON(info.Lattice)
		}
	}
	return out
}

func newLatticeJSON(l *transform.OrientedLattice) *latticeJSON {
	out := &latticeJSON{A: l.A, B: l.B, C: l.C, Alpha: l.Alpha, Beta: l.Beta, Gamma: l.Gamma}
	ub := l.UB()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.UB[i][j] = ub.At(i, j)
		}
	}
	return out
}

func dimensionsJSON(dims []*geometry.Dimension) []dimensionJSON {
	out := make([]dimensionJSON, len(dims))
	for i, d := range dims {
		out[i] = dimensionJSON{
			ID:    d.ID(),
			Name:  d.Name(),
			Frame: d.MDFrame().Name(),
			Units: d.Units().Label(),
			Min:   d.Minimum(),
			Max:   d.Maximum(),
			Bins:  d.NBins(),
		}
	}
	return out
}

type fileJSON struct {
	File  string `json:"file"`
	Size  int64  `json:"size"`
	Kind  string `json:"kind,omitempty"`
	Name  string `json:"name,omitempty"`
	Dims  int    `json:"num_dims,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}

// handleFiles lists every workspace file under the data directory.
// Symlinks are not followed.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	files := []fileJSON{}
	err := filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 || filepath.Ext(path) != FileExtension {
			return nil
		}
		rel, err := filepath.Rel(s.dataDir, path)
		if err != nil {
			return err
		}
		entry := fileJSON{File: filepath.ToSlash(rel)}
		if fi, err := d.Info(); err == nil {
			entry.Size = fi.Size()
		}
		if sum, err := workspace.Describe(path); err != nil {
			entry.Error = err.Error()
		} else {
			entry.Kind, entry.Name, entry.Dims = sum.Kind, sum.Name, len(sum.Dimensions)
		}
		files = append(files, entry)
		return nil
	})
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].File < files[j].File })
	s.writeJSON(w, files)
}

// handleInfo describes one file. Query params:
//
//	file (required) path relative to the data directory
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name, path, ok := s.resolve(w, r)
	if !ok {
		return
	}
	sum, err := workspace.Describe(path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := newSummaryJSON(name, sum)
	if !sum.IsEventWorkspace() {
		g, _, err := workspace.LoadHistogram(path)
		if err != nil {
			s.writeError(w, err)
			return
		}
		total := g.TotalSignal()
		out.Cells = g.NPoints()
		out.TotalSignal = &total
		out.DisplayNormalization = g.DisplayNormalization().String()
	}
	s.writeJSON(w, out)
}

// handleHeatMap renders a 2-D slice of a histogram. Query params:
//
//	file (required)
//	x, y (optional, default 0 and 1) dimension indices of the axes
//	fixed (optional) comma separated bin index per dimension
//	norm (optional) none, volume or numevents
func (s *Server) handleHeatMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name, path, ok := s.resolve(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	xDim, err := queryInt(q.Get("x"), 0)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	yDim, err := queryInt(q.Get("y"), 1)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var fixed []int
	if v := q.Get("fixed"); v != "" {
		vals, err := queryFloats(v)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, f := range vals {
			fixed = append(fixed, int(f))
		}
	}
	norm, err := histogram.ParseNormalization(q.Get("norm"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, _, err := workspace.LoadHistogram(path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	slice, err := render.Slice2D(g, xDim, yDim, fixed, norm)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := render.RenderHeatMap(&buf, slice, name); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

var lineFormats = map[string]string{
	"png": "image/png",
	"svg": "image/svg+xml",
	"pdf": "application/pdf",
}

// handleLine renders a line profile through a histogram. Query params:
//
//	file, start, end (required) start and end are comma separated points
//	norm (optional) none, volume or numevents
//	boundaries (optional) sample bin boundaries instead of centres
//	errors (optional, default true) draw error bars
//	format (optional) png, svg or pdf
func (s *Server) handleLine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name, path, ok := s.resolve(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	start, err := queryFloats(q.Get("start"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	end, err := queryFloats(q.Get("end"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "end: "+err.Error())
		return
	}
	norm, err := histogram.ParseNormalization(q.Get("norm"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	boundaries, err := queryBool(q.Get("boundaries"), false)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	errorBars, err := queryBool(q.Get("errors"), true)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = "png"
	}
	contentType, ok := lineFormats[format]
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}

	g, _, err := workspace.LoadHistogram(path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	line, err := g.LinePoints(start, end, norm, !boundaries)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := render.LineOptions{
		Title:     name,
		YLabel:    fmt.Sprintf("Signal (%s normalization)", norm),
		ErrorBars: errorBars,
	}
	var buf bytes.Buffer
	if err := render.RenderLineProfile(&buf, format, opts, render.LineSeries{Line: line}); err != nil {
		s.writeError(w, err)
		return
	}
	base := security.SanitizeFilename(strings.TrimSuffix(filepath.Base(name), FileExtension))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", base+"-profile."+format))
	w.Write(buf.Bytes())
}

// resolve reads the file query parameter and confines it to the data
// directory. It writes the error response itself when ok is false.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (name, path string, ok bool) {
	name = r.URL.Query().Get("file")
	if name == "" {
		s.writeJSONError(w, http.StatusBadRequest, "missing 'file' parameter")
		return "", "", false
	}
	path, err := security.ResolveInDirectory(s.dataDir, name)
	if err != nil {
		s.writeError(w, err)
		return "", "", false
	}
	return name, path, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, security.ErrOutsideDirectory):
		status = http.StatusForbidden
	case errors.Is(err, slabstore.ErrNotFound), errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, workspace.ErrNotHistogram), errors.Is(err, render.ErrBadSlice):
		status = http.StatusBadRequest
	case errors.Is(err, render.ErrNoData), errors.Is(err, slabstore.ErrSchemaVersion):
		status = http.StatusUnprocessableEntity
	default:
		logf("request failed: %v", err)
	}
	s.writeJSONError(w, status, err.Error())
}

func queryInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", v)
	}
	return n, nil
}

func queryBool(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}

func queryFloats(v string) ([]float64, error) {
	if v == "" {
		return nil, errors.New("missing comma separated values")
	}
	parts := strings.Split(v, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%q is not a finite number", p)
		}
		out[i] = f
	}
	return out, nil
}
