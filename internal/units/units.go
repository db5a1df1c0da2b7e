// Package units provides the physical-unit descriptors bound to coordinate frames.
package units

import (
	"regexp"
	"strings"
)

// Unit labels
const (
	InverseAngstromsLabel  = "Angstrom^-1"
	ReciprocalLatticeLabel = "r.l.u."
)

// inverseAngstromLabels contains every label parsed as an inverse-angstrom unit.
var inverseAngstromLabels = []string{InverseAngstromsLabel, "A^-1", "Å^-1", "Angstroms^-1"}

var (
	qLabelPattern      = regexp.MustCompile(`(A|Å|Angstrom|Angstroms)\^-1`)
	specialRLUPattern  = regexp.MustCompile(`^in\s+\S+\s*(A|Å|Angstrom|Angstroms)\^-1$`)
	reciprocalRLULabel = []string{ReciprocalLatticeLabel, "rlu", "RLU"}
)

// Unit describes the physical unit attached to one dimension.
type Unit interface {
	// Label is the display label, e.g. "Angstrom^-1".
	Label() string
	// IsQUnit reports whether the unit measures momentum transfer.
	IsQUnit() bool
	// CanConvertTo reports whether values in this unit can be expressed in other.
	CanConvertTo(other Unit) bool
	// Clone returns an independent copy.
	Clone() Unit
}

// InverseAngstroms is the momentum-transfer unit Å⁻¹.
type InverseAngstroms struct{}

func (InverseAngstroms) Label() string                { return InverseAngstromsLabel }
func (InverseAngstroms) IsQUnit() bool                { return true }
func (InverseAngstroms) CanConvertTo(other Unit) bool { return other != nil && other.IsQUnit() }
func (u InverseAngstroms) Clone() Unit                { return u }

// ReciprocalLattice is the reciprocal-lattice unit. A custom label of the form
// "in 1.992 A^-1" records the scale of one r.l.u. along the axis.
type ReciprocalLattice struct {
	label string
}

// NewReciprocalLattice returns an r.l.u. unit with the given label, or the
// plain "r.l.u." label when label is empty or not a recognised special label.
func NewReciprocalLattice(label string) ReciprocalLattice {
	if IsSpecialRLULabel(label) {
		return ReciprocalLattice{label: label}
	}
	return ReciprocalLattice{}
}

func (u ReciprocalLattice) Label() string {
	if u.label == "" {
		return ReciprocalLatticeLabel
	}
	return u.label
}
func (ReciprocalLattice) IsQUnit() bool                { return true }
func (ReciprocalLattice) CanConvertTo(other Unit) bool { return other != nil && other.IsQUnit() }
func (u ReciprocalLattice) Clone() Unit                { return u }

// Label is a free-text unit. It is a Q unit only when the label names an
// inverse length in angstroms.
type Label struct {
	label string
}

// NewLabel returns a label unit.
func NewLabel(label string) Label { return Label{label: label} }

func (u Label) Label() string { return u.label }
func (u Label) IsQUnit() bool { return qLabelPattern.MatchString(u.label) }

// CanConvertTo is true only for a unit carrying the identical label.
func (u Label) CanConvertTo(other Unit) bool {
	return other != nil && other.Label() == u.label
}
func (u Label) Clone() Unit { return u }

// IsSpecialRLULabel reports whether label has the "in <scale> A^-1" form.
func IsSpecialRLULabel(label string) bool {
	return specialRLUPattern.MatchString(strings.TrimSpace(label))
}

// IsInverseAngstromLabel reports whether label names Å⁻¹ directly.
func IsInverseAngstromLabel(label string) bool {
	for _, l := range inverseAngstromLabels {
		if label == l {
			return true
		}
	}
	return false
}

// IsRLULabel reports whether label names the plain or special r.l.u. unit.
func IsRLULabel(label string) bool {
	for _, l := range reciprocalRLULabel {
		if label == l {
			return true
		}
	}
	return IsSpecialRLULabel(label)
}
