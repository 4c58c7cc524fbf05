package utils

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func lossFixture() (*mat.Dense, []int) {
	return mat.NewDense(2, 3, []float64{
		1, 2, 3,
		1, 1, 1,
	}), []int{2, 1}
}

func TestSoftmaxValues(t *testing.T) {
	logits, _ := lossFixture()
	p := Softmax(logits)
	if r, c := p.Dims(); r != 2 || c != 3 {
		t.Fatalf("dims = %dx%d", r, c)
	}
	want := []float64{0.09003, 0.24473, 0.66524}
	for j, w := range want {
		if math.Abs(p.At(0, j)-w) > 1e-5 {
			t.Fatalf("p[0,%d] = %v, want %v", j, p.At(0, j), w)
		}
	}
}

func TestCrossEntropyLoss(t *testing.T) {
	logits, labels := lossFixture()
	// (-ln 0.665241 - ln 1/3) / 2
	want := (-math.Log(0.6652409557748219) + math.Log(3)) / 2
	got := CrossEntropyLoss(logits, labels)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("loss = %v, want %v", got, want)
	}
	if math.Abs(got-0.75311) > 1e-4 {
		t.Fatalf("loss = %v, want ≈0.75311", got)
	}
}

func TestCrossEntropyGradients(t *testing.T) {
	logits, labels := lossFixture()
	g := CrossEntropyGradients(logits, labels)
	if r, c := g.Dims(); r != 2 || c != 3 {
		t.Fatalf("dims = %dx%d", r, c)
	}
	// (p - 1) / batch at the true column.
	if math.Abs(g.At(0, 2)-(0.66524-1)/2) > 1e-5 {
		t.Fatalf("g[0,2] = %v", g.At(0, 2))
	}
	for i := 0; i < 2; i++ {
		if s := mat.Sum(g.RowView(i)); math.Abs(s) > 1e-12 {
			t.Fatalf("row %d gradient sums to %v", i, s)
		}
	}

	// Matches a finite difference of the loss.
	eps := 1e-6
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			w := logits.At(i, j)
			logits.Set(i, j, w+eps)
			lp := CrossEntropyLoss(logits, labels)
			logits.Set(i, j, w-eps)
			lm := CrossEntropyLoss(logits, labels)
			logits.Set(i, j, w)
			if num := (lp - lm) / (2 * eps); math.Abs(num-g.At(i, j)) > 1e-6 {
				t.Fatalf("g[%d,%d]: num=%g ana=%g", i, j, num, g.At(i, j))
			}
		}
	}
}

func TestLossEmptyBatch(t *testing.T) {
	if CrossEntropyLoss(&mat.Dense{}, nil) != 0 {
		t.Fatal("empty batch must have zero loss")
	}
	if !CrossEntropyGradients(&mat.Dense{}, nil).IsEmpty() {
		t.Fatal("empty batch must have empty gradient")
	}
}

func TestLossLabelPreconditions(t *testing.T) {
	logits, _ := lossFixture()
	expectPanic(t, "label out of range", func() { CrossEntropyLoss(logits, []int{3, 0}) })
	expectPanic(t, "negative label", func() { CrossEntropyGradients(logits, []int{-1, 0}) })
	expectPanic(t, "label count", func() { CrossEntropyLoss(logits, []int{0}) })
}
