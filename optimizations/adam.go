package optimizations

import (
	"fmt"
	"math"
	"strings"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/params"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/mat"
)

// Kind selects the update rule.
type Kind int

const (
	SGD Kind = iota
	Adam
)

func (k Kind) String() string {
	switch k {
	case SGD:
		return "sgd"
	case Adam:
		return "adam"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sgd":
		return SGD, nil
	case "adam", "adamw":
		return Adam, nil
	}
	return SGD, fmt.Errorf("unknown optimizer %q", s)
}

// Param pairs a trainable matrix with its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

// Optimizer updates one parameter matrix. Adam moments are allocated on the
// first Step and are then bound to that matrix's shape.
type Optimizer struct {
	Kind         Kind
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	WeightDecay  float64

	// Adam state
	T      int
	M1, M2 *mat.Dense
}

func New(kind Kind, lr float64) *Optimizer {
	return &Optimizer{
		Kind:         kind,
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// FromConfig builds the optimizer described by cfg.
func FromConfig(cfg params.TrainingConfig) (*Optimizer, error) {
	kind, err := ParseKind(cfg.Optimizer)
	if err != nil {
		return nil, err
	}
	o := New(kind, cfg.LearningRate)
	o.Beta1, o.Beta2, o.Epsilon = cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps
	o.WeightDecay = cfg.WeightDecay
	return o, nil
}

// Clone copies the hyperparameters and leaves the moment state fresh.
func (o *Optimizer) Clone() *Optimizer {
	c := *o
	c.T, c.M1, c.M2 = 0, nil, nil
	return &c
}

// Step applies one update to p using gradient g.
func (o *Optimizer) Step(p, g *mat.Dense) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic(fmt.Sprintf("Optimizer.Step: grad shape mismatch (%dx%d vs %dx%d)", pr, pc, gr, gc))
	}
	switch o.Kind {
	case SGD:
		SGDUpdateInPlace(p, g, o.LearningRate)
	case Adam:
		if o.M1 == nil {
			o.M1 = utils.ZerosLike(p)
			o.M2 = utils.ZerosLike(p)
			o.T = 0
		}
		if mr, mc := o.M1.Dims(); mr != pr || mc != pc {
			panic(fmt.Sprintf("Optimizer.Step: moments track a %dx%d matrix, got %dx%d", mr, mc, pr, pc))
		}
		o.T++
		AdamUpdateInPlace(p, g, o.M1, o.M2, o.T, o.LearningRate, o.Beta1, o.Beta2, o.Epsilon, o.WeightDecay)
	default:
		panic(fmt.Sprintf("Optimizer.Step: unknown kind %v", o.Kind))
	}
}

// p -= lr * g
func SGDUpdateInPlace(p, g *mat.Dense, lr float64) {
	utils.MustSameShape("sgdUpdateInPlace", p, g)
	r, _ := p.Dims()
	for i := 0; i < r; i++ {
		prow := p.RawRowView(i)
		grow := g.RawRowView(i)
		for j := range prow {
			prow[j] -= lr * grow[j]
		}
	}
}

// p -= lr * (mhat/(sqrt(vhat)+eps) + wd * p) with bias correction (AdamW).
func AdamUpdateInPlace(
	p, g, m, v *mat.Dense,
	t int,
	lr, beta1, beta2, eps, weightDecay float64,
) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("adamUpdateInPlace: grad shape mismatch")
	}
	if mr, mc := m.Dims(); mr != pr || mc != pc {
		panic("adamUpdateInPlace: m shape mismatch")
	}
	if vr, vc := v.Dims(); vr != pr || vc != pc {
		panic("adamUpdateInPlace: v shape mismatch")
	}
	c1 := 1.0 / (1.0 - math.Pow(beta1, float64(t)))
	c2 := 1.0 / (1.0 - math.Pow(beta2, float64(t)))
	for i := 0; i < pr; i++ {
		prow, grow := p.RawRowView(i), g.RawRowView(i)
		mrow, vrow := m.RawRowView(i), v.RawRowView(i)
		for j := range prow {
			gij := grow[j]
			mrow[j] = beta1*mrow[j] + (1.0-beta1)*gij
			vrow[j] = beta2*vrow[j] + (1.0-beta2)*gij*gij
			mhat := mrow[j] * c1
			vhat := vrow[j] * c2
			update := mhat/(math.Sqrt(vhat)+eps) + weightDecay*prow[j]
			prow[j] -= lr * update
		}
	}
}

// ------- Parameter groups --------

// Group fans one optimizer configuration out over many named parameter sets,
// each with its own moment estimates and timestep.
type Group struct {
	proto *Optimizer
	slots map[string]*Optimizer
}

func NewGroup(proto *Optimizer) *Group {
	return &Group{proto: proto.Clone(), slots: make(map[string]*Optimizer)}
}

func (g *Group) Kind() Kind { return g.proto.Kind }

func (g *Group) LearningRate() float64 { return g.proto.LearningRate }

// Slot returns the optimizer bound to name, creating it on first use.
func (g *Group) Slot(name string) *Optimizer {
	o, ok := g.slots[name]
	if !ok {
		o = g.proto.Clone()
		g.slots[name] = o
	}
	return o
}

// Step updates every parameter from its accumulated gradient.
func (g *Group) Step(ps []Param) {
	for _, p := range ps {
		g.Slot(p.Name).Step(p.Value, p.Grad)
	}
}

// Snapshot is the gob-friendly form of a group's moment state.
type Snapshot struct {
	Kind  Kind
	Slots map[string]SlotState
}

type SlotState struct {
	T          int
	Rows, Cols int
	M1, M2     []float64
}

func (g *Group) Snapshot() Snapshot {
	s := Snapshot{Kind: g.proto.Kind, Slots: make(map[string]SlotState, len(g.slots))}
	for name, o := range g.slots {
		if o.M1 == nil {
			continue
		}
		r, c := o.M1.Dims()
		s.Slots[name] = SlotState{
			T:    o.T,
			Rows: r, Cols: c,
			M1: utils.Flatten(o.M1),
			M2: utils.Flatten(o.M2),
		}
	}
	return s
}

// Restore replaces the moment state with s.
func (g *Group) Restore(s Snapshot) error {
	if s.Kind != g.proto.Kind {
		return fmt.Errorf("restore optimizer: snapshot is %v, group is %v", s.Kind, g.proto.Kind)
	}
	slots := make(map[string]*Optimizer, len(s.Slots))
	for name, st := range s.Slots {
		if st.Rows*st.Cols != len(st.M1) || len(st.M1) != len(st.M2) || st.Rows <= 0 || st.Cols <= 0 {
			return fmt.Errorf("restore optimizer: slot %q is corrupt", name)
		}
		o := g.proto.Clone()
		o.T = st.T
		o.M1 = mat.NewDense(st.Rows, st.Cols, append([]float64(nil), st.M1...))
		o.M2 = mat.NewDense(st.Rows, st.Cols, append([]float64(nil), st.M2...))
		slots[name] = o
	}
	g.slots = slots
	return nil
}
