package transformer

import (
	"fmt"
	"math/rand/v2"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/optimizations"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/mat"
)

// ClassificationHead maps pooled rows to raw class logits: X·W + b.
type ClassificationHead struct {
	W, B   *mat.Dense // (d x c), (1 x c)
	DW, DB *mat.Dense
}

func NewClassificationHead(modelDim, numClasses int, src rand.Source) *ClassificationHead {
	if modelDim <= 0 || numClasses <= 0 {
		panic(fmt.Sprintf("NewClassificationHead: dimensions must be positive (%d, %d)", modelDim, numClasses))
	}
	h := &ClassificationHead{
		W: mat.NewDense(modelDim, numClasses, utils.RandomArray(modelDim*numClasses, float64(modelDim), src)),
		B: mat.NewDense(1, numClasses, nil),
	}
	h.DW = utils.ZerosLike(h.W)
	h.DB = utils.ZerosLike(h.B)
	return h
}

func (h *ClassificationHead) NumClasses() int {
	_, c := h.W.Dims()
	return c
}

func (h *ClassificationHead) Forward(X *mat.Dense) *mat.Dense {
	if X.IsEmpty() {
		return &mat.Dense{}
	}
	d, _ := h.W.Dims()
	if _, c := X.Dims(); c != d {
		panic(fmt.Sprintf("ClassificationHead.Forward: input width %d, want %d", c, d))
	}
	return utils.AddRowBias(utils.Dot(X, h.W), h.B)
}

// Backward accumulates dW = Xᵀ·dL, db = colsum(dL) and returns dL·Wᵀ.
func (h *ClassificationHead) Backward(X, dLogits *mat.Dense) *mat.Dense {
	utils.AccumulateInto(h.DW, utils.Dot(X.T(), dLogits))
	utils.AccumulateInto(h.DB, utils.ColumnSums(dLogits))
	return utils.Dot(dLogits, h.W.T())
}

func (h *ClassificationHead) ParametersMut() []*float64 {
	return append(utils.Scalars(h.W), utils.Scalars(h.B)...)
}

func (h *ClassificationHead) Parameters() []optimizations.Param {
	return []optimizations.Param{
		{Name: "head.w", Value: h.W, Grad: h.DW},
		{Name: "head.b", Value: h.B, Grad: h.DB},
	}
}

func (h *ClassificationHead) ZeroGrad() {
	h.DW.Zero()
	h.DB.Zero()
}
