package units

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		label string
		wantQ bool
		want  string
	}{
		{"Angstrom^-1", true, "units.InverseAngstroms"},
		{"A^-1", true, "units.InverseAngstroms"},
		{"r.l.u.", true, "units.ReciprocalLattice"},
		{"in 1.992 A^-1", true, "units.ReciprocalLattice"},
		{"meV", false, "units.Label"},
		{"", false, "units.Label"},
		{"dimensionless", false, "units.Label"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			u := Parse(tt.label)
			if u.IsQUnit() != tt.wantQ {
				t.Errorf("Parse(%q).IsQUnit() = %v, want %v", tt.label, u.IsQUnit(), tt.wantQ)
			}
			if got := typeName(u); got != tt.want {
				t.Errorf("Parse(%q) type = %s, want %s", tt.label, got, tt.want)
			}
		})
	}
}

func typeName(u Unit) string {
	switch u.(type) {
	case InverseAngstroms:
		return "units.InverseAngstroms"
	case ReciprocalLattice:
		return "units.ReciprocalLattice"
	case Label:
		return "units.Label"
	}
	return "?"
}

func TestSpecialRLULabelPreserved(t *testing.T) {
	u := Parse("in 6.28 A^-1")
	if u.Label() != "in 6.28 A^-1" {
		t.Errorf("label = %q", u.Label())
	}
	if plain := NewReciprocalLattice("nonsense"); plain.Label() != ReciprocalLatticeLabel {
		t.Errorf("non-special label should fall back to r.l.u., got %q", plain.Label())
	}
}

func TestCanConvertTo(t *testing.T) {
	ia := InverseAngstroms{}
	rlu := NewReciprocalLattice("")
	meV := NewLabel("meV")
	qLabel := NewLabel("Q in A^-1")

	tests := []struct {
		name     string
		from, to Unit
		expected bool
	}{
		{"A^-1 to rlu", ia, rlu, true},
		{"rlu to A^-1", rlu, ia, true},
		{"A^-1 to meV", ia, meV, false},
		{"meV to meV", meV, NewLabel("meV"), true},
		{"meV to A^-1", meV, ia, false},
		{"q label is Q", ia, qLabel, true},
		{"nil target", ia, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanConvertTo(tt.to); got != tt.expected {
				t.Errorf("CanConvertTo = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClone(t *testing.T) {
	u := NewLabel("counts")
	c := u.Clone()
	if c.Label() != "counts" || !c.CanConvertTo(u) {
		t.Errorf("clone lost label: %q", c.Label())
	}
}
