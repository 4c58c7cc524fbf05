package transformer

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/optimizations"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/params"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/mat"
)

// Transformer is an encoder-only sequence classifier:
// embed -> encoder layers -> pool -> classification head.
type Transformer struct {
	Config     params.ModelConfig
	Vocab      params.Vocabulary
	Embeddings *Embeddings
	Layers     []*EncoderLayer
	Head       *ClassificationHead
}

// ForwardCache keeps a batch's intermediates for Backward.
type ForwardCache struct {
	Batch  [][]int
	Pooled *mat.Dense
	Seqs   [][]*EncoderCache // per sequence, per layer; nil for empty sequences
}

// Initalization

func New(cfg params.ModelConfig, vocab params.Vocabulary, src rand.Source) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("transformer config: %w", err)
	}
	if err := vocab.Validate(); err != nil {
		return nil, fmt.Errorf("transformer vocabulary: %w", err)
	}
	t := &Transformer{
		Config:     cfg,
		Vocab:      vocab,
		Embeddings: NewEmbeddings(vocab.Len(), cfg.ModelDim, vocab.UnkID(), src),
		Layers:     make([]*EncoderLayer, cfg.NumLayers),
	}
	for i := range t.Layers {
		t.Layers[i] = NewEncoderLayer(cfg.ModelDim, cfg.FeedForwardDim, cfg.Epsilon, src)
	}
	t.Head = NewClassificationHead(cfg.ModelDim, cfg.NumClasses, src)
	return t, nil
}

// Forward returns one row of logits per sequence in batch.
func (t *Transformer) Forward(batch [][]int) *mat.Dense {
	if len(batch) == 0 {
		return &mat.Dense{}
	}
	pooled := mat.NewDense(len(batch), t.Config.ModelDim, nil)
	t.encodeBatch(batch, pooled, false)
	return t.Head.Forward(pooled)
}

// ForwardMatrix accepts the batched token-matrix form: one example per row,
// token ids stored as floats.
func (t *Transformer) ForwardMatrix(m *mat.Dense) *mat.Dense {
	if m.IsEmpty() {
		return &mat.Dense{}
	}
	r, c := m.Dims()
	batch := make([][]int, r)
	for i := range batch {
		batch[i] = make([]int, c)
		for j, v := range m.RawRowView(i) {
			batch[i][j] = int(math.Round(v))
		}
	}
	return t.Forward(batch)
}

// ForwardTrain is Forward that also returns what Backward needs.
func (t *Transformer) ForwardTrain(batch [][]int) (*mat.Dense, *ForwardCache) {
	cache := &ForwardCache{Batch: batch, Seqs: make([][]*EncoderCache, len(batch))}
	if len(batch) == 0 {
		return &mat.Dense{}, cache
	}
	pooled := mat.NewDense(len(batch), t.Config.ModelDim, nil)
	cache.Seqs = t.encodeBatch(batch, pooled, true)
	cache.Pooled = pooled
	return t.Head.Forward(pooled), cache
}

// Backward propagates dLogits through every component, accumulating gradients.
func (t *Transformer) Backward(cache *ForwardCache, dLogits *mat.Dense) {
	if len(cache.Batch) == 0 {
		return
	}
	dPooled := t.Head.Backward(cache.Pooled, dLogits)
	for i, ids := range cache.Batch {
		if len(ids) == 0 {
			continue
		}
		dX := t.unpool(dPooled.RawRowView(i), len(ids))
		for li := len(t.Layers) - 1; li >= 0; li-- {
			dX = t.Layers[li].Backward(cache.Seqs[i][li], dX)
		}
		t.Embeddings.Backward(ids, dX)
	}
}

// pool collapses a (T x d) sequence matrix into one d-vector.
func (t *Transformer) pool(X *mat.Dense) []float64 {
	if t.Config.Pooling == params.PoolFirst {
		return append([]float64(nil), X.RawRowView(0)...)
	}
	return utils.MeanRows(X).RawRowView(0)
}

// unpool is the adjoint of pool for a sequence of length T.
func (t *Transformer) unpool(g []float64, T int) *mat.Dense {
	d := len(g)
	out := mat.NewDense(T, d, nil)
	if t.Config.Pooling == params.PoolFirst {
		out.SetRow(0, g)
		return out
	}
	inv := 1.0 / float64(T)
	for i := 0; i < T; i++ {
		row := out.RawRowView(i)
		for j, v := range g {
			row[j] = v * inv
		}
	}
	return out
}

// ParametersMut returns every trainable scalar in a fixed order:
// encoder layers, classification head, embeddings.
func (t *Transformer) ParametersMut() []*float64 {
	var out []*float64
	for _, l := range t.Layers {
		out = append(out, l.ParametersMut()...)
	}
	out = append(out, t.Head.ParametersMut()...)
	return append(out, t.Embeddings.ParametersMut()...)
}

// Parameters pairs each trainable matrix with its gradient, in ParametersMut order.
func (t *Transformer) Parameters() []optimizations.Param {
	var out []optimizations.Param
	for i, l := range t.Layers {
		out = append(out, l.Parameters(fmt.Sprintf("encoder.%d", i))...)
	}
	out = append(out, t.Head.Parameters()...)
	return append(out, t.Embeddings.Parameters()...)
}

func (t *Transformer) Gradients() []*mat.Dense {
	ps := t.Parameters()
	out := make([]*mat.Dense, len(ps))
	for i, p := range ps {
		out[i] = p.Grad
	}
	return out
}

func (t *Transformer) ZeroGrad() {
	for _, l := range t.Layers {
		l.ZeroGrad()
	}
	t.Head.ZeroGrad()
	t.Embeddings.ZeroGrad()
}

// ApplyFlatGradients pairs the row-major gradient values with ParametersMut
// and applies p -= lr*g until the shorter of the two runs out. Returns the
// number of scalars updated.
func (t *Transformer) ApplyFlatGradients(grads *mat.Dense, lr float64) int {
	if grads.IsEmpty() {
		return 0
	}
	flat := utils.Flatten(grads)
	ps := t.ParametersMut()
	n := min(len(flat), len(ps))
	for i := 0; i < n; i++ {
		*ps[i] -= lr * flat[i]
	}
	return n
}
