package geometry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameFactoryChain(t *testing.T) {
	chain := MakeFrameFactoryChain()

	tests := []struct {
		name string
		arg  FrameArgument
		want FrameKind
	}{
		{"general", FrameArgument{GeneralFrameName, "meV"}, FrameGeneral},
		{"qlab", FrameArgument{QLabName, "Angstrom^-1"}, FrameQLab},
		{"qsample", FrameArgument{QSampleName, "Angstrom^-1"}, FrameQSample},
		{"hkl rlu", FrameArgument{HKLName, "r.l.u."}, FrameHKL},
		{"hkl inverse angstrom", FrameArgument{HKLName, "A^-1"}, FrameHKL},
		{"hkl special label", FrameArgument{HKLName, "in 3.14 A^-1"}, FrameHKL},
		{"unknown name", FrameArgument{"Detector Space", "mm"}, FrameUnknown},
		{"empty", FrameArgument{}, FrameUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, chain.CanInterpret(tt.arg))
			f, err := chain.Create(tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Kind())
		})
	}
}

func TestFrameFactoryChain_HKLWithNonQUnitFails(t *testing.T) {
	_, err := MakeFrameFactoryChain().Create(FrameArgument{HKLName, "counts"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatibleUnit), "got %v", err)
}

func TestFrameFactoryChain_NoFallback(t *testing.T) {
	chain := NewFrameFactoryChain(QLabFrameFactory{}, QSampleFrameFactory{})

	assert.False(t, chain.CanInterpret(FrameArgument{GeneralFrameName, ""}))
	_, err := chain.Create(FrameArgument{GeneralFrameName, ""})
	assert.True(t, errors.Is(err, ErrUnsupportedFrame), "got %v", err)
}

func TestHKLFrameFactory_Direct(t *testing.T) {
	f := HKLFrameFactory{}
	assert.False(t, f.CanInterpret(FrameArgument{HKLName, "meV"}))
	_, err := f.Create(FrameArgument{HKLName, "meV"})
	assert.True(t, errors.Is(err, ErrIncompatibleUnit))
	_, err = f.Create(FrameArgument{QLabName, "A^-1"})
	assert.True(t, errors.Is(err, ErrUnsupportedFrame))
}
