package render

import (
	"fmt"
	"image/color"
	"math"
)

// viridis is the colour ramp used for heat-map visual maps and line series.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// generateColors samples n colours evenly along the viridis ramp, from its
// dark end to its light end.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	stops := make([]color.RGBA, len(viridis))
	for i, hex := range viridis {
		stops[i] = parseHex(hex)
	}

	colors := make([]color.Color, n)
	for i := range colors {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		pos := t * float64(len(stops)-1)
		lo := int(math.Floor(pos))
		hi := min(lo+1, len(stops)-1)
		colors[i] = lerpRGBA(stops[lo], stops[hi], pos-float64(lo))
	}
	return colors
}

func parseHex(s string) color.RGBA {
	c := color.RGBA{A: 255}
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		panic(fmt.Sprintf("bad palette colour %q: %v", s, err))
	}
	return c
}

func lerpRGBA(a, b color.RGBA, f float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
