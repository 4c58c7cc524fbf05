package transformer

import (
	"fmt"
	"math/rand/v2"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/optimizations"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/mat"
)

// FeedForward is relu(X·W1 + b1)·W2 + b2, applied to every row independently.
type FeedForward struct {
	ModelDim, Hidden int
	W1, B1           *mat.Dense // (d x h), (1 x h)
	W2, B2           *mat.Dense // (h x d), (1 x d)

	// accumulated gradients
	DW1, DB1 *mat.Dense
	DW2, DB2 *mat.Dense
}

// ffnCache keeps one forward pass for backprop.
type ffnCache struct {
	X, HiddenPreAct, HiddenOut *mat.Dense
}

func NewFeedForward(modelDim, hidden int, src rand.Source) *FeedForward {
	if modelDim <= 0 || hidden <= 0 {
		panic(fmt.Sprintf("NewFeedForward: dimensions must be positive (%d, %d)", modelDim, hidden))
	}
	ff := &FeedForward{
		ModelDim: modelDim,
		Hidden:   hidden,
		W1:       mat.NewDense(modelDim, hidden, utils.UniformArray(modelDim*hidden, -initRange, initRange, src)),
		B1:       mat.NewDense(1, hidden, nil),
		W2:       mat.NewDense(hidden, modelDim, utils.UniformArray(hidden*modelDim, -initRange, initRange, src)),
		B2:       mat.NewDense(1, modelDim, nil),
	}
	ff.allocGrads()
	return ff
}

func (ff *FeedForward) allocGrads() {
	ff.DW1 = utils.ZerosLike(ff.W1)
	ff.DB1 = utils.ZerosLike(ff.B1)
	ff.DW2 = utils.ZerosLike(ff.W2)
	ff.DB2 = utils.ZerosLike(ff.B2)
}

func (ff *FeedForward) Forward(X *mat.Dense) *mat.Dense {
	out, _ := ff.forward(X)
	return out
}

func (ff *FeedForward) forward(X *mat.Dense) (*mat.Dense, *ffnCache) {
	if X.IsEmpty() {
		panic("FeedForward.Forward: empty input")
	}
	if _, c := X.Dims(); c != ff.ModelDim {
		panic(fmt.Sprintf("FeedForward.Forward: input width %d, want %d", c, ff.ModelDim))
	}
	pre := utils.AddRowBias(utils.Dot(X, ff.W1), ff.B1) // (T x h)
	hid := utils.Apply(utils.ReLU, pre)
	out := utils.AddRowBias(utils.Dot(hid, ff.W2), ff.B2) // (T x d)
	return out, &ffnCache{X: X, HiddenPreAct: pre, HiddenOut: hid}
}

// backward accumulates parameter gradients and returns dX.
func (ff *FeedForward) backward(c *ffnCache, dY *mat.Dense) *mat.Dense {
	utils.MustSameShape("FeedForward.backward", dY, c.X)

	utils.AccumulateInto(ff.DW2, utils.Dot(c.HiddenOut.T(), dY))
	utils.AccumulateInto(ff.DB2, utils.ColumnSums(dY))

	dHidden := utils.Multiply(utils.Dot(dY, ff.W2.T()), utils.ReLUMask(c.HiddenPreAct))

	utils.AccumulateInto(ff.DW1, utils.Dot(c.X.T(), dHidden))
	utils.AccumulateInto(ff.DB1, utils.ColumnSums(dHidden))

	return utils.Dot(dHidden, ff.W1.T())
}

func (ff *FeedForward) ParametersMut() []*float64 {
	var out []*float64
	for _, m := range []*mat.Dense{ff.W1, ff.B1, ff.W2, ff.B2} {
		out = append(out, utils.Scalars(m)...)
	}
	return out
}

func (ff *FeedForward) Parameters(prefix string) []optimizations.Param {
	return []optimizations.Param{
		{Name: prefix + ".w1", Value: ff.W1, Grad: ff.DW1},
		{Name: prefix + ".b1", Value: ff.B1, Grad: ff.DB1},
		{Name: prefix + ".w2", Value: ff.W2, Grad: ff.DW2},
		{Name: prefix + ".b2", Value: ff.B2, Grad: ff.DB2},
	}
}

func (ff *FeedForward) ZeroGrad() {
	ff.DW1.Zero()
	ff.DB1.Zero()
	ff.DW2.Zero()
	ff.DB2.Zero()
}
