package transformer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// PositionalEncoding returns the (L x D) sinusoidal table:
// even columns sin(pos/10000^(2*floor(i/2)/D)), odd columns cos of the same angle.
func PositionalEncoding(L, D int) *mat.Dense {
	if L <= 0 || D <= 0 {
		panic(fmt.Sprintf("PositionalEncoding: dimensions must be positive (%dx%d)", L, D))
	}
	pe := mat.NewDense(L, D, nil)
	for pos := 0; pos < L; pos++ {
		row := pe.RawRowView(pos)
		for i := range row {
			angle := float64(pos) / math.Pow(10000, float64(2*(i/2))/float64(D))
			if i%2 == 0 {
				row[i] = math.Sin(angle)
			} else {
				row[i] = math.Cos(angle)
			}
		}
	}
	return pe
}
