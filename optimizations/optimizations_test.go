package optimizations

import (
	"math"
	"testing"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/params"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
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

func TestSGDStep(t *testing.T) {
	p := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	g := mat.NewDense(2, 2, []float64{0.1, 0.2, 0.3, 0.4})
	New(SGD, 0.001).Step(p, g)
	want := mat.NewDense(2, 2, []float64{0.9999, 1.9998, 2.9997, 3.9996})
	if !mat.EqualApprox(p, want, 1e-12) {
		t.Fatalf("SGD step = %v", mat.Formatted(p))
	}
}

func TestAdamFirstStep(t *testing.T) {
	// After one bias-corrected step every entry moves by ~lr*sign(g).
	p := mat.NewDense(1, 3, []float64{1, 1, 1})
	g := mat.NewDense(1, 3, []float64{0.5, -2, 1e-3})
	o := New(Adam, 0.01)
	o.Step(p, g)
	if o.T != 1 || o.M1 == nil || o.M2 == nil {
		t.Fatalf("moments not allocated: t=%d", o.T)
	}
	want := []float64{0.99, 1.01, 0.99}
	if !floats.EqualApprox(p.RawRowView(0), want, 1e-6) {
		t.Fatalf("adam step = %v, want %v", p.RawRowView(0), want)
	}
}

func TestAdamMatchesReference(t *testing.T) {
	p := mat.NewDense(1, 1, []float64{0.5})
	o := New(Adam, 0.1)
	grads := []float64{0.2, -0.1, 0.4}
	m, v, w := 0.0, 0.0, 0.5
	for i, gv := range grads {
		o.Step(p, mat.NewDense(1, 1, []float64{gv}))
		m = 0.9*m + 0.1*gv
		v = 0.999*v + 0.001*gv*gv
		mhat := m / (1 - math.Pow(0.9, float64(i+1)))
		vhat := v / (1 - math.Pow(0.999, float64(i+1)))
		w -= 0.1 * mhat / (math.Sqrt(vhat) + 1e-8)
	}
	if math.Abs(p.At(0, 0)-w) > 1e-12 {
		t.Fatalf("adam = %v, reference = %v", p.At(0, 0), w)
	}
}

func TestOptimizerShapePreconditions(t *testing.T) {
	expectPanic(t, "grad mismatch", func() {
		New(SGD, 0.1).Step(mat.NewDense(2, 2, nil), mat.NewDense(1, 2, nil))
	})
	o := New(Adam, 0.1)
	o.Step(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil))
	expectPanic(t, "moment mismatch", func() {
		o.Step(mat.NewDense(3, 1, nil), mat.NewDense(3, 1, nil))
	})
}

func TestParseKindAndFromConfig(t *testing.T) {
	if k, err := ParseKind("Adam"); err != nil || k != Adam {
		t.Fatalf("ParseKind(Adam) = %v, %v", k, err)
	}
	if _, err := ParseKind("rmsprop"); err == nil {
		t.Fatal("expected error for unknown optimizer")
	}
	cfg := params.DefaultConfig()
	cfg.Optimizer = "sgd"
	cfg.LearningRate = 0.5
	o, err := FromConfig(cfg)
	if err != nil || o.Kind != SGD || o.LearningRate != 0.5 {
		t.Fatalf("FromConfig = %+v, %v", o, err)
	}
}

func TestGroupKeepsSeparateMoments(t *testing.T) {
	grp := NewGroup(New(Adam, 0.01))
	a := Param{Name: "a", Value: mat.NewDense(1, 2, []float64{1, 1}), Grad: mat.NewDense(1, 2, []float64{1, 1})}
	b := Param{Name: "b", Value: mat.NewDense(3, 1, []float64{1, 1, 1}), Grad: mat.NewDense(3, 1, []float64{-1, -1, -1})}
	grp.Step([]Param{a, b})
	grp.Step([]Param{a})
	if grp.Slot("a").T != 2 || grp.Slot("b").T != 1 {
		t.Fatalf("timesteps a=%d b=%d", grp.Slot("a").T, grp.Slot("b").T)
	}

	snap := grp.Snapshot()
	fresh := NewGroup(New(Adam, 0.01))
	if err := fresh.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !mat.Equal(fresh.Slot("a").M2, grp.Slot("a").M2) || fresh.Slot("b").T != 1 {
		t.Fatal("restored state differs")
	}
	if err := NewGroup(New(SGD, 0.01)).Restore(snap); err == nil {
		t.Fatal("expected kind mismatch error")
	}
}

func TestLayerNormRowsStandardised(t *testing.T) {
	x := mat.NewDense(2, 4, []float64{1, 2, 3, 4, -3, 10, 0.5, 7})
	y := ApplyLayerNorm(x, 1e-5)
	for i := 0; i < 2; i++ {
		mu, v := stat.PopMeanVariance(y.RawRowView(i), nil)
		if math.Abs(mu) > 1e-9 || math.Abs(v-1) > 1e-3 {
			t.Fatalf("row %d: mean=%g var=%g", i, mu, v)
		}
	}
	// Input is left untouched.
	if x.At(0, 0) != 1 {
		t.Fatal("ApplyLayerNorm mutated its input")
	}
}

func TestLayerNormConstantRowIsFinite(t *testing.T) {
	y := ApplyLayerNorm(mat.NewDense(1, 3, []float64{5, 5, 5}), 1e-6)
	for _, v := range y.RawRowView(0) {
		if v != 0 {
			t.Fatalf("constant row should normalise to zero, got %v", v)
		}
	}
}

func TestLayerNormBackwardGradCheck(t *testing.T) {
	ln := NewLayerNorm(1e-5)
	x := mat.NewDense(2, 4, []float64{0.3, -1.2, 2.0, 0.7, 1.5, 0.1, -0.4, 0.9})
	w := mat.NewDense(2, 4, []float64{1, -2, 0.5, 3, -1, 0.25, 2, -0.5})
	loss := func() float64 {
		y, _ := ln.Forward(x)
		var p mat.Dense
		p.MulElem(y, w)
		return mat.Sum(&p)
	}
	_, cache := ln.Forward(x)
	dX := ln.Backward(cache, w)
	eps := 1e-6
	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			w0 := x.At(i, j)
			x.Set(i, j, w0+eps)
			lp := loss()
			x.Set(i, j, w0-eps)
			lm := loss()
			x.Set(i, j, w0)
			if num := (lp - lm) / (2 * eps); math.Abs(num-dX.At(i, j)) > 1e-5 {
				t.Fatalf("dX[%d,%d]: num=%g ana=%g", i, j, num, dX.At(i, j))
			}
		}
	}
}
