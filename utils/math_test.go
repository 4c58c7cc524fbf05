package utils

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestRowSoftmaxRowsSumToOne(t *testing.T) {
	m := mat.NewDense(3, 4, []float64{
		1, 2, 3, 4,
		-1000, 0, 1000, 5,
		0, 0, 0, 0,
	})
	p := RowSoftmax(m)
	for i := 0; i < 3; i++ {
		row := p.RawRowView(i)
		if math.Abs(floats.Sum(row)-1) > 1e-9 {
			t.Fatalf("row %d sums to %v", i, floats.Sum(row))
		}
		for _, v := range row {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("row %d has invalid probability %v", i, v)
			}
		}
	}
	if !floats.EqualApprox(p.RawRowView(2), []float64{0.25, 0.25, 0.25, 0.25}, 1e-12) {
		t.Fatalf("uniform row mismatch: %v", p.RawRowView(2))
	}
}

func TestAddRowBiasAndColumnSums(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := mat.NewDense(1, 3, []float64{10, 20, 30})
	got := AddRowBias(m, b)
	want := mat.NewDense(2, 3, []float64{11, 22, 33, 14, 25, 36})
	if !mat.Equal(got, want) {
		t.Fatalf("AddRowBias = %v", mat.Formatted(got))
	}
	if !mat.Equal(ColumnSums(m), mat.NewDense(1, 3, []float64{5, 7, 9})) {
		t.Fatalf("ColumnSums = %v", mat.Formatted(ColumnSums(m)))
	}
	expectPanic(t, "AddRowBias", func() { AddRowBias(m, mat.NewDense(1, 2, nil)) })
}

func TestDotShapeMismatchPanics(t *testing.T) {
	expectPanic(t, "Dot", func() { Dot(mat.NewDense(2, 3, nil), mat.NewDense(2, 3, nil)) })
	expectPanic(t, "Add", func() { Add(mat.NewDense(2, 3, nil), mat.NewDense(3, 2, nil)) })
}

func TestSoftmaxBackwardMatchesFiniteDifference(t *testing.T) {
	x := mat.NewDense(2, 3, []float64{0.1, -0.4, 0.7, 1.2, 0.3, -0.5})
	up := mat.NewDense(2, 3, []float64{0.5, -1, 2, 0.3, 0.9, -0.2})
	loss := func() float64 {
		return mat.Sum(Multiply(RowSoftmax(x), up))
	}
	dS := SoftmaxBackward(up, RowSoftmax(x))
	eps := 1e-6
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			w := x.At(i, j)
			x.Set(i, j, w+eps)
			lp := loss()
			x.Set(i, j, w-eps)
			lm := loss()
			x.Set(i, j, w)
			num := (lp - lm) / (2 * eps)
			if math.Abs(num-dS.At(i, j)) > 1e-6 {
				t.Fatalf("dS[%d,%d]: num=%g ana=%g", i, j, num, dS.At(i, j))
			}
		}
	}
}

func TestClipGrads(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{3, 0})
	b := mat.NewDense(1, 1, []float64{4})
	s := ClipGrads(1, a, b)
	if math.Abs(s-0.2) > 1e-12 {
		t.Fatalf("scale = %v, want 0.2", s)
	}
	if math.Abs(MatrixNorm(a)*MatrixNorm(a)+MatrixNorm(b)*MatrixNorm(b)-1) > 1e-12 {
		t.Fatal("combined norm not clipped to 1")
	}
	if ClipGrads(0, a) != 1 {
		t.Fatal("non-positive max norm must disable clipping")
	}
}

func TestArgMaxRowsAndMeanRows(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 5, 5, 9, 0, -1})
	got := ArgMaxRows(m)
	if got[0] != 1 || got[1] != 0 {
		t.Fatalf("ArgMaxRows = %v", got)
	}
	if !mat.EqualApprox(MeanRows(m), mat.NewDense(1, 3, []float64{5, 2.5, 2}), 1e-12) {
		t.Fatalf("MeanRows = %v", mat.Formatted(MeanRows(m)))
	}
	if ArgMaxRows(&mat.Dense{}) != nil {
		t.Fatal("empty matrix must have no argmax")
	}
}

func TestUniformArrayDeterministicAndBounded(t *testing.T) {
	a := UniformArray(100, -0.1, 0.1, NewSource(7))
	b := UniformArray(100, -0.1, 0.1, NewSource(7))
	if !floats.Equal(a, b) {
		t.Fatal("same seed must give same samples")
	}
	for _, v := range a {
		if v < -0.1 || v >= 0.1 {
			t.Fatalf("sample %v outside [-0.1,0.1)", v)
		}
	}
}

func TestScalarsAliasMatrix(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	ps := Scalars(m)
	*ps[3] = 40
	if m.At(1, 1) != 40 {
		t.Fatal("Scalars must alias the matrix storage")
	}
	if !floats.Equal(Flatten(m), []float64{1, 2, 3, 40}) {
		t.Fatalf("Flatten = %v", Flatten(m))
	}
}
