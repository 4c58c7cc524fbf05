package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix functions used by every layer. Rows are tokens (or examples),
// columns are features.

// r = rows of matrix
// c = columns of matrix
// o = output
// m = matrix input number 1
// n = matrix input number 2

func Dot(m, n mat.Matrix) *mat.Dense {
	r, k := m.Dims()
	k2, c := n.Dims()
	if k != k2 {
		panic(fmt.Sprintf("Dot: inner dimensions differ (%dx%d · %dx%d)", r, k, k2, c))
	}
	o := mat.NewDense(r, c, nil)
	o.Mul(m, n)
	return o
}

func Apply(fn func(i, j int, v float64) float64, m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Apply(fn, m)
	return o
}

func Scale(s float64, m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Scale(s, m)
	return o
}

func Multiply(m, n mat.Matrix) *mat.Dense {
	MustSameShape("Multiply", m, n)
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.MulElem(m, n)
	return o
}

func Add(m, n mat.Matrix) *mat.Dense {
	MustSameShape("Add", m, n)
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Add(m, n)
	return o
}

func Subtract(m, n mat.Matrix) *mat.Dense {
	MustSameShape("Subtract", m, n)
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Sub(m, n)
	return o
}

// AddRowBias adds the (1 x c) bias to every row of m.
func AddRowBias(m, bias *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	if br, bc := bias.Dims(); br != 1 || bc != c {
		panic(fmt.Sprintf("AddRowBias: bias must be (1 x %d), got (%d x %d)", c, br, bc))
	}
	b := bias.RawRowView(0)
	out := mat.DenseCopyOf(m)
	for i := 0; i < r; i++ {
		floats.Add(out.RawRowView(i), b)
	}
	return out
}

// ColumnSums returns the (1 x c) sum over rows, the gradient of a row-broadcast bias.
func ColumnSums(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(1, c, nil)
	acc := out.RawRowView(0)
	for i := 0; i < r; i++ {
		floats.Add(acc, m.RawRowView(i))
	}
	return out
}

// AccumulateInto adds g into dst in place. Both must share a shape.
func AccumulateInto(dst, g *mat.Dense) {
	MustSameShape("AccumulateInto", dst, g)
	dst.Add(dst, g)
}

// ReLU is shape-compatible with mat.Dense.Apply.
func ReLU(_, _ int, x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// ReLUMask returns 1 where the pre-activation was positive, 0 elsewhere.
func ReLUMask(pre *mat.Dense) *mat.Dense {
	return Apply(func(_, _ int, x float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	}, pre)
}

// RowSoftmax applies softmax independently to each row across columns.
// Each row is shifted by its max before exponentiation.
func RowSoftmax(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	out := mat.DenseCopyOf(m)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		floats.AddConst(-floats.Max(row), row)
		for j := range row {
			row[j] = math.Exp(row[j])
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return out
}

// Softmax backward for row-wise softmax used in attention.
// Vector-JVP form: for each row i,
// s = sum_k dA[i,k] * A[i,k]; dS[i,j] = A[i,j] * (dA[i,j] - s)
func SoftmaxBackward(dA, A *mat.Dense) *mat.Dense {
	MustSameShape("SoftmaxBackward", dA, A)
	r, c := A.Dims()
	dS := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		a := A.RawRowView(i)
		da := dA.RawRowView(i)
		s := floats.Dot(da, a)
		out := dS.RawRowView(i)
		for j := range out {
			out[j] = a[j] * (da[j] - s)
		}
	}
	return dS
}

// ArgMaxRows returns the column index of the largest value in each row.
// Ties resolve to the lowest index.
func ArgMaxRows(m *mat.Dense) []int {
	if m.IsEmpty() {
		return nil
	}
	r, _ := m.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		out[i] = floats.MaxIdx(m.RawRowView(i))
	}
	return out
}

// MeanRows averages the rows of m into a single (1 x c) row.
func MeanRows(m *mat.Dense) *mat.Dense {
	r, _ := m.Dims()
	out := ColumnSums(m)
	out.Scale(1/float64(r), out)
	return out
}
