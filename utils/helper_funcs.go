package utils

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Guard functions

// MustSameShape panics when a and b differ in shape. fn names the caller.
func MustSameShape(fn string, a, b mat.Matrix) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		panic(fmt.Sprintf("%s: shape mismatch (%dx%d vs %dx%d)", fn, ar, ac, br, bc))
	}
}

// NewSource returns a deterministic generator for the given seed.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// UniformArray returns size samples from U(min, max).
func UniformArray(size int, min, max float64, src rand.Source) []float64 {
	dist := distuv.Uniform{Min: min, Max: max, Src: src}
	out := make([]float64, size)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// RandomArray returns size samples from U(-1/sqrt(v), 1/sqrt(v)).
func RandomArray(size int, v float64, src rand.Source) []float64 {
	lim := 1.0 / math.Sqrt(v+1e-12)
	return UniformArray(size, -lim, lim, src)
}

// Helper functions

func OneHot(n, idx int) *mat.Dense {
	v := make([]float64, n)
	if idx >= 0 && idx < n {
		v[idx] = 1.0
	}
	return mat.NewDense(1, n, v)
}

func ToDense(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}

func ZerosLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}

func OnesLike(a *mat.Dense) *mat.Dense {
	out := ZerosLike(a)
	out.Apply(func(_, _ int, _ float64) float64 { return 1 }, out)
	return out
}

// MatrixNorm is the Frobenius norm.
func MatrixNorm(m *mat.Dense) float64 {
	if m.IsEmpty() {
		return 0
	}
	return mat.Norm(m, 2)
}

// debugging and clipping.

// ClipGrads scales all grads so their combined norm <= maxNorm.
// Returns the scale actually applied (<=1.0) or 1.0 if no clip.
func ClipGrads(maxNorm float64, grads ...*mat.Dense) float64 {
	if maxNorm <= 0 {
		return 1.0
	}
	sum := 0.0
	for _, g := range grads {
		if g == nil {
			continue
		}
		n := MatrixNorm(g)
		sum += n * n
	}
	gn := math.Sqrt(sum)
	if gn <= maxNorm || gn == 0 {
		return 1.0
	}
	s := maxNorm / gn
	for _, g := range grads {
		if g != nil && !g.IsEmpty() {
			g.Scale(s, g)
		}
	}
	return s
}

// Flatten copies m into a row-major slice.
func Flatten(m *mat.Dense) []float64 {
	if m.IsEmpty() {
		return nil
	}
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}

// Scalars exposes every entry of m as an addressable float, row-major.
func Scalars(m *mat.Dense) []*float64 {
	r, c := m.Dims()
	out := make([]*float64, 0, r*c)
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := range row {
			out = append(out, &row[j])
		}
	}
	return out
}
