package units

// Factory interprets a unit label. Factories are tried in order by Parse.
type Factory interface {
	CanInterpret(label string) bool
	Create(label string) Unit
}

type inverseAngstromsFactory struct{}

func (inverseAngstromsFactory) CanInterpret(label string) bool { return IsInverseAngstromLabel(label) }
func (inverseAngstromsFactory) Create(string) Unit             { return InverseAngstroms{} }

type reciprocalLatticeFactory struct{}

func (reciprocalLatticeFactory) CanInterpret(label string) bool { return IsRLULabel(label) }
func (reciprocalLatticeFactory) Create(label string) Unit       { return NewReciprocalLattice(label) }

// labelFactory accepts anything and is always last.
type labelFactory struct{}

func (labelFactory) CanInterpret(string) bool { return true }
func (labelFactory) Create(label string) Unit { return NewLabel(label) }

// defaultChain is the fixed priority order used by Parse.
var defaultChain = []Factory{inverseAngstromsFactory{}, reciprocalLatticeFactory{}, labelFactory{}}

// Parse maps a unit label to the most specific Unit that accepts it.
// It never fails: unrecognised labels become Label units.
func Parse(label string) Unit {
	for _, f := range defaultChain {
		if f.CanInterpret(label) {
			return f.Create(label)
		}
	}
	return NewLabel(label)
}
