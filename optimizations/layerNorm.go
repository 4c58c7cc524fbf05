package optimizations

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LayerNorm normalises each row to zero mean and unit (population) variance.
// Scale is fixed at 1 and shift at 0.
type LayerNorm struct {
	Eps float64
}

// LayerNormCache holds what Backward needs from a Forward call.
type LayerNormCache struct {
	Xhat   *mat.Dense
	InvStd []float64 // per row
}

func NewLayerNorm(eps float64) *LayerNorm {
	if eps <= 0 {
		panic(fmt.Sprintf("NewLayerNorm: eps must be positive, got %g", eps))
	}
	return &LayerNorm{Eps: eps}
}

// ApplyLayerNorm is Forward without keeping a cache.
func ApplyLayerNorm(X *mat.Dense, eps float64) *mat.Dense {
	out, _ := (&LayerNorm{Eps: eps}).Forward(X)
	return out
}

func (ln *LayerNorm) Forward(X *mat.Dense) (*mat.Dense, *LayerNormCache) {
	if X.IsEmpty() {
		panic("LayerNorm.Forward: empty input")
	}
	T, _ := X.Dims()
	xhat := mat.DenseCopyOf(X)
	inv := make([]float64, T)
	for t := 0; t < T; t++ {
		row := xhat.RawRowView(t)
		mu, v := stat.PopMeanVariance(row, nil)
		istd := 1.0 / math.Sqrt(v+ln.Eps)
		inv[t] = istd
		floats.AddConst(-mu, row)
		floats.Scale(istd, row)
	}
	return mat.DenseCopyOf(xhat), &LayerNormCache{Xhat: xhat, InvStd: inv}
}

// Backward returns dX for the upstream gradient dY, per row:
// dx = istd/d * (d*dy - sum(dy) - xhat*sum(dy*xhat))
func (ln *LayerNorm) Backward(cache *LayerNormCache, dY *mat.Dense) *mat.Dense {
	T, d := dY.Dims()
	if xr, xc := cache.Xhat.Dims(); xr != T || xc != d {
		panic(fmt.Sprintf("LayerNorm.Backward: grad %dx%d does not match cache %dx%d", T, d, xr, xc))
	}
	dX := mat.NewDense(T, d, nil)
	n := float64(d)
	for t := 0; t < T; t++ {
		gy := dY.RawRowView(t)
		xh := cache.Xhat.RawRowView(t)
		sum1 := floats.Sum(gy)
		sum2 := floats.Dot(gy, xh)
		scale := cache.InvStd[t] / n
		out := dX.RawRowView(t)
		for i := range out {
			out[i] = (n*gy[i] - sum1 - xh[i]*sum2) * scale
		}
	}
	return dX
}
