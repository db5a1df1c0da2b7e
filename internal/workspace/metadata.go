package workspace

import (
	"errors"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/slabstore"
	"github.com/banshee-data/mdspace/internal/transform"
	"github.com/banshee-data/mdspace/internal/units"
)

// FrameVersion is written to every saved workspace. Files without it predate
// per-dimension frames and go through CorrectLegacyFrames on load.
const FrameVersion = 1

const (
	kindEventWorkspace = "MDEventWorkspace"
	kindHistoWorkspace = "MDHistoWorkspace"

	groupWorkspace  = "workspace"
	groupDimensions = "dimensions"
	groupExperiment = "experiment0"
	groupGoniometer = "goniometer"
)

func writeDimensions(g *slabstore.Group, dims []*geometry.Dimension) error {
	dg, err := g.CreateGroup(groupDimensions)
	if err != nil {
		return err
	}
	for i, d := range dims {
		sub, err := dg.CreateGroup("d" + strconv.Itoa(i))
		if err != nil {
			return err
		}
		for name, v := range map[string]interface{}{
			"id":         d.ID(),
			"name":       d.Name(),
			"frame":      d.MDFrame().Kind().String(),
			"frame_name": d.MDFrame().Name(),
			"units":      d.Units().Label(),
			"minimum":    d.Minimum(),
			"maximum":    d.Maximum(),
			"bins":       d.NBins(),
		} {
			if err := sub.SetAttr(name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// readDimensions rebuilds dimensions. A dimension without a frame attribute
// gets an Unknown frame carrying its unit; CorrectLegacyFrames fixes it up.
func readDimensions(g *slabstore.Group, nd int) ([]*geometry.Dimension, error) {
	dg, err := g.OpenGroup(groupDimensions)
	if err != nil {
		return nil, err
	}
	chain := geometry.MakeFrameFactoryChain()
	dims := make([]*geometry.Dimension, nd)
	for i := range dims {
		sub, err := dg.OpenGroup("d" + strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		id, err := stringAttr(sub, "id")
		if err != nil {
			return nil, err
		}
		name, err := stringAttr(sub, "name")
		if err != nil {
			return nil, err
		}
		unit, err := stringAttr(sub, "units")
		if err != nil {
			return nil, err
		}
		min, err := floatAttr(sub, "minimum")
		if err != nil {
			return nil, err
		}
		max, err := floatAttr(sub, "maximum")
		if err != nil {
			return nil, err
		}
		bins, err := intAttr(sub, "bins")
		if err != nil {
			return nil, err
		}

		frame := geometry.NewUnknownFrame(units.Parse(unit))
		frameName, err := stringAttr(sub, "frame")
		switch {
		case err == nil:
			if frame, err = chain.Create(geometry.FrameArgument{FrameName: frameName, UnitName: unit}); err != nil {
				return nil, fmt.Errorf("dimension %s: %w", id, err)
			}
			if frame.Kind() == geometry.FrameGeneral {
				if custom, err := stringAttr(sub, "frame_name"); err == nil {
					frame = geometry.NewGeneralFrame(custom, units.Parse(unit))
				}
			}
		case !errors.Is(err, slabstore.ErrNotFound):
			return nil, err
		}
		if dims[i], err = geometry.NewDimension(id, name, frame, min, max, int(bins)); err != nil {
			return nil, err
		}
	}
	return dims, nil
}

func writeExperiment(g *slabstore.Group, info *transform.ExperimentInfo) error {
	eg, err := g.CreateGroup(groupExperiment)
	if err != nil {
		return err
	}
	if err := eg.SetAttr("q_convention", info.QConvention); err != nil {
		return err
	}
	if l := info.Lattice; l != nil {
		if err := eg.SetAttr("lattice", []float64{l.A, l.B, l.C, l.Alpha, l.Beta, l.Gamma}); err != nil {
			return err
		}
		if err := eg.SetAttr("u_matrix", l.U().RawMatrix().Data); err != nil {
			return err
		}
	}
	if info.W != nil {
		if err := eg.SetAttr("w_matrix", mat.DenseCopyOf(info.W).RawMatrix().Data); err != nil {
			return err
		}
	}
	if info.Goniometer != nil {
		gg, err := eg.CreateGroup(groupGoniometer)
		if err != nil {
			return err
		}
		for i, a := range info.Goniometer.Axes() {
			ag, err := gg.CreateGroup("axis" + strconv.Itoa(i))
			if err != nil {
				return err
			}
			if err := ag.SetAttr("name", a.Name); err != nil {
				return err
			}
			if err := ag.SetAttr("direction", a.Direction[:]); err != nil {
				return err
			}
			if err := ag.SetAttr("angle", a.Angle); err != nil {
				return err
			}
			if err := ag.SetAttr("sense", a.Sense); err != nil {
				return err
			}
		}
	}
	if in := info.Instrument; in != nil {
		ig, err := eg.CreateGroup("instrument")
		if err != nil {
			return err
		}
		if err := ig.SetAttr("name", in.Name); err != nil {
			return err
		}
		if err := ig.SetAttr("l1", in.L1); err != nil {
			return err
		}
		if err := ig.SetAttr("beam", in.Beam[:]); err != nil {
			return err
		}
		ids := in.DetectorIDs()
		rows := make([]float64, 0, 4*len(ids))
		for _, id := range ids {
			p := in.Pixels[id]
			rows = append(rows, float64(id), p[0], p[1], p[2])
		}
		if _, err := ig.WriteDataset("pixels", 4, rows); err != nil {
			return err
		}
	}
	return nil
}

func readExperiment(g *slabstore.Group) (*transform.ExperimentInfo, error) {
	info := transform.NewExperimentInfo()
	eg, err := g.OpenGroup(groupExperiment)
	if errors.Is(err, slabstore.ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}
	if qc, err := stringAttr(eg, "q_convention"); err == nil {
		info.QConvention = qc
	}

	if lat, err := floatsAttr(eg, "lattice", 6); err == nil {
		l, err := transform.NewOrientedLattice(lat[0], lat[1], lat[2], lat[3], lat[4], lat[5])
		if err != nil {
			return nil, err
		}
		if u, err := floatsAttr(eg, "u_matrix", 9); err == nil {
			if err := l.SetU(mat.NewDense(3, 3, u)); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, slabstore.ErrNotFound) {
			return nil, err
		}
		info.Lattice = l
	} else if !errors.Is(err, slabstore.ErrNotFound) {
		return nil, err
	}

	if w, err := floatsAttr(eg, "w_matrix", 9); err == nil {
		info.W = mat.NewDense(3, 3, w)
	} else if !errors.Is(err, slabstore.ErrNotFound) {
		return nil, err
	}

	if gg, err := eg.OpenGroup(groupGoniometer); err == nil {
		axes, err := gg.Members()
		if err != nil {
			return nil, err
		}
		gon := transform.NewGoniometer()
		for i := range axes {
			ag, err := gg.OpenGroup("axis" + strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			name, err := stringAttr(ag, "name")
			if err != nil {
				return nil, err
			}
			dir, err := floatsAttr(ag, "direction", 3)
			if err != nil {
				return nil, err
			}
			angle, err := floatAttr(ag, "angle")
			if err != nil {
				return nil, err
			}
			sense, err := intAttr(ag, "sense")
			if err != nil {
				return nil, err
			}
			if err := gon.PushAxis(name, transform.Vec3{dir[0], dir[1], dir[2]}, angle, int(sense)); err != nil {
				return nil, err
			}
		}
		info.Goniometer = gon
	}

	if ig, err := eg.OpenGroup("instrument"); err == nil {
		name, err := stringAttr(ig, "name")
		if err != nil {
			return nil, err
		}
		l1, err := floatAttr(ig, "l1")
		if err != nil {
			return nil, err
		}
		beam, err := floatsAttr(ig, "beam", 3)
		if err != nil {
			return nil, err
		}
		in := transform.NewInstrument(name, l1)
		in.Beam = transform.Vec3{beam[0], beam[1], beam[2]}
		ds, err := ig.OpenDataset("pixels")
		if err != nil {
			return nil, err
		}
		rows, err := ds.ReadFloat64()
		if err != nil {
			return nil, err
		}
		for i := 0; i+3 < len(rows); i += 4 {
			in.SetPixel(int32(rows[i]), transform.Vec3{rows[i+1], rows[i+2], rows[i+3]})
		}
		info.Instrument = in
	}
	return info, nil
}

type attrReader interface {
	Attr(name string) (*slabstore.Attribute, error)
}

func stringAttr(n attrReader, name string) (string, error) {
	a, err := n.Attr(name)
	if err != nil {
		return "", err
	}
	return a.ReadString()
}

func floatAttr(n attrReader, name string) (float64, error) {
	a, err := n.Attr(name)
	if err != nil {
		return 0, err
	}
	return a.ReadFloat64()
}

func intAttr(n attrReader, name string) (int64, error) {
	a, err := n.Attr(name)
	if err != nil {
		return 0, err
	}
	return a.ReadInt64()
}

func floatsAttr(n attrReader, name string, want int) ([]float64, error) {
	a, err := n.Attr(name)
	if err != nil {
		return nil, err
	}
	v, err := a.ReadFloat64s()
	if err != nil {
		return nil, err
	}
	if len(v) != want {
		return nil, fmt.Errorf("attribute %s has %d values, want %d", name, len(v), want)
	}
	return v, nil
}
