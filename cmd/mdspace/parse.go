package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/mdspace/internal/transform"
)

// parseFloats reads a comma separated list. want < 0 accepts any length.
func parseFloats(s string, want int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if want >= 0 && len(parts) != want {
		return nil, fmt.Errorf("%q: want %d comma separated values, got %d", s, want, len(parts))
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(s string, want int) ([]int, error) {
	fs, err := parseFloats(s, want)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		if f != float64(int(f)) {
			return nil, fmt.Errorf("%q: %v is not an integer", s, f)
		}
		out[i] = int(f)
	}
	return out, nil
}

func parseVec3(s string) (transform.Vec3, error) {
	v, err := parseFloats(s, 3)
	if err != nil {
		return transform.Vec3{}, err
	}
	return transform.Vec3{v[0], v[1], v[2]}, nil
}

// parseLattice reads "a,b,c,alpha,beta,gamma" and orients it with u and v.
func parseLattice(lattice, u, v string) (*transform.OrientedLattice, error) {
	p, err := parseFloats(lattice, 6)
	if err != nil {
		return nil, err
	}
	uv, err := parseVec3(u)
	if err != nil {
		return nil, err
	}
	vv, err := parseVec3(v)
	if err != nil {
		return nil, err
	}
	return transform.UBFromLatticeAndVectors(p[0], p[1], p[2], p[3], p[4], p[5], uv, vv)
}
