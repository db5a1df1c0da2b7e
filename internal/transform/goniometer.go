package transform

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Rotation sense of a goniometer axis.
const (
	CCW = 1
	CW  = -1
)

// Axis is one rotation stage of a goniometer.
type Axis struct {
	Name      string
	Direction Vec3
	Angle     float64 // degrees
	Sense     int
}

// Goniometer composes its axes outermost first: R = R0·R1·…
type Goniometer struct {
	axes []Axis
}

// NewGoniometer returns a goniometer with no axes (R = I).
func NewGoniometer() *Goniometer { return &Goniometer{} }

// UniversalGoniometer returns the omega/chi/phi stack: omega about y,
// chi about z, phi about y, all counter-clockwise.
func UniversalGoniometer(omega, chi, phi float64) *Goniometer {
	g := NewGoniometer()
	_ = g.PushAxis("omega", Vec3{0, 1, 0}, omega, CCW)
	_ = g.PushAxis("chi", Vec3{0, 0, 1}, chi, CCW)
	_ = g.PushAxis("phi", Vec3{0, 1, 0}, phi, CCW)
	return g
}

// PushAxis appends an inner axis.
func (g *Goniometer) PushAxis(name string, dir Vec3, angle float64, sense int) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAxis)
	}
	for _, a := range g.axes {
		if a.Name == name {
			return fmt.Errorf("%w: duplicate axis %q", ErrInvalidAxis, name)
		}
	}
	if dir.Norm2() == 0 {
		return fmt.Errorf("%w: axis %q has zero direction", ErrInvalidAxis, name)
	}
	if sense != CCW && sense != CW {
		return fmt.Errorf("%w: axis %q sense must be 1 or -1", ErrInvalidAxis, name)
	}
	g.axes = append(g.axes, Axis{Name: name, Direction: dir.Unit(), Angle: angle, Sense: sense})
	return nil
}

// SetAngle updates the angle of a named axis.
func (g *Goniometer) SetAngle(name string, angle float64) error {
	for i := range g.axes {
		if g.axes[i].Name == name {
			g.axes[i].Angle = angle
			return nil
		}
	}
	return fmt.Errorf("%w: no axis %q", ErrInvalidAxis, name)
}

// Axes returns a copy of the axis list.
func (g *Goniometer) Axes() []Axis {
	return append([]Axis(nil), g.axes...)
}

// R returns the combined rotation matrix.
func (g *Goniometer) R() *mat.Dense {
	r := identity3()
	for _, a := range g.axes {
		var next mat.Dense
		next.Mul(r, Rotation(a.Direction, float64(a.Sense)*a.Angle))
		r = &next
	}
	return r
}

func (g *Goniometer) String() string {
	parts := make([]string, len(g.axes))
	for i, a := range g.axes {
		parts[i] = fmt.Sprintf("%s=%.3f", a.Name, a.Angle)
	}
	return strings.Join(parts, " ")
}

// Rotation is the Rodrigues rotation by angle degrees about unit axis n.
func Rotation(n Vec3, angle float64) *mat.Dense {
	n = n.Unit()
	s, c := math.Sincos(angle * deg)
	t := 1 - c
	x, y, z := n[0], n[1], n[2]
	return mat.NewDense(3, 3, []float64{
		c + x*x*t, x*y*t - z*s, x*z*t + y*s,
		y*x*t + z*s, c + y*y*t, y*z*t - x*s,
		z*x*t - y*s, z*y*t + x*s, c + z*z*t,
	})
}
