package geometry

import "fmt"

// SpecialCoordinateSystem tags a workspace whose leading dimensions are Q-like.
type SpecialCoordinateSystem int

const (
	CoordNone SpecialCoordinateSystem = iota
	CoordQLab
	CoordQSample
	CoordHKL
)

func (c SpecialCoordinateSystem) String() string {
	switch c {
	case CoordQLab:
		return QLabName
	case CoordQSample:
		return QSampleName
	case CoordHKL:
		return HKLName
	}
	return "None"
}

// ParseSpecialCoordinateSystem is the inverse of String.
func ParseSpecialCoordinateSystem(s string) (SpecialCoordinateSystem, error) {
	switch s {
	case "None", "":
		return CoordNone, nil
	case QLabName:
		return CoordQLab, nil
	case QSampleName:
		return CoordQSample, nil
	case HKLName:
		return CoordHKL, nil
	}
	return CoordNone, fmt.Errorf("unknown special coordinate system %q", s)
}

// CoordinateSystemOf derives the tag from a set of dimensions. The first
// Q-like frame found decides; mixed Q frames are not reconciled.
func CoordinateSystemOf(dims []*Dimension) SpecialCoordinateSystem {
	for _, d := range dims {
		if cs := d.frame.SpecialCoordinateSystem(); cs != CoordNone {
			return cs
		}
	}
	return CoordNone
}
