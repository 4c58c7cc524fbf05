package transformer

import (
	"fmt"
	"math/rand/v2"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/optimizations"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/mat"
)

// initRange bounds the uniform initialisation of embeddings and feed-forward weights.
const initRange = 0.1

type Embeddings struct {
	VocabSize int
	ModelDim  int
	UnkID     int
	Table     *mat.Dense // (|V| x d)
	Grad      *mat.Dense
}

func NewEmbeddings(vocabSize, modelDim, unkID int, src rand.Source) *Embeddings {
	if vocabSize <= 0 || modelDim <= 0 {
		panic(fmt.Sprintf("NewEmbeddings: dimensions must be positive (%dx%d)", vocabSize, modelDim))
	}
	if unkID < 0 || unkID >= vocabSize {
		panic(fmt.Sprintf("NewEmbeddings: unknown id %d outside vocabulary of %d", unkID, vocabSize))
	}
	data := utils.UniformArray(vocabSize*modelDim, -initRange, initRange, src)
	return &Embeddings{
		VocabSize: vocabSize,
		ModelDim:  modelDim,
		UnkID:     unkID,
		Table:     mat.NewDense(vocabSize, modelDim, data),
		Grad:      mat.NewDense(vocabSize, modelDim, nil),
	}
}

// row maps an id onto a table row, sending out-of-range ids to the unknown token.
func (e *Embeddings) row(id int) int {
	if id < 0 || id >= e.VocabSize {
		return e.UnkID
	}
	return id
}

// Encode looks up each id and adds the positional encoding. Empty input gives
// an empty matrix.
func (e *Embeddings) Encode(ids []int) *mat.Dense {
	if len(ids) == 0 {
		return &mat.Dense{}
	}
	out := PositionalEncoding(len(ids), e.ModelDim)
	for t, id := range ids {
		row := out.RawRowView(t)
		src := e.Table.RawRowView(e.row(id))
		for j := range row {
			row[j] += src[j]
		}
	}
	return out
}

// Backward scatters dX rows into the gradient of the rows they were read from.
func (e *Embeddings) Backward(ids []int, dX *mat.Dense) {
	if len(ids) == 0 {
		return
	}
	if r, c := dX.Dims(); r != len(ids) || c != e.ModelDim {
		panic(fmt.Sprintf("Embeddings.Backward: grad %dx%d for %d ids of width %d", r, c, len(ids), e.ModelDim))
	}
	for t, id := range ids {
		g := e.Grad.RawRowView(e.row(id))
		for j, v := range dX.RawRowView(t) {
			g[j] += v
		}
	}
}

func (e *Embeddings) ParametersMut() []*float64 { return utils.Scalars(e.Table) }

func (e *Embeddings) Parameters() []optimizations.Param {
	return []optimizations.Param{{Name: "embeddings.table", Value: e.Table, Grad: e.Grad}}
}

func (e *Embeddings) ZeroGrad() { e.Grad.Zero() }
