package transformer

import (
	"fmt"
	"math/rand/v2"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/optimizations"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/mat"
)

// EncoderLayer: A = attn(X,X,X); N1 = LN(X + A); out = LN(N1 + FFN(N1)).
type EncoderLayer struct {
	FFN *FeedForward
	Ln1 *optimizations.LayerNorm
	Ln2 *optimizations.LayerNorm
}

// EncoderCache holds one layer's forward intermediates for a single sequence.
type EncoderCache struct {
	X, A     *mat.Dense // input, attention weights
	Ln1, Ln2 *optimizations.LayerNormCache
	FFN      *ffnCache
}

func NewEncoderLayer(modelDim, hidden int, eps float64, src rand.Source) *EncoderLayer {
	return &EncoderLayer{
		FFN: NewFeedForward(modelDim, hidden, src),
		Ln1: optimizations.NewLayerNorm(eps),
		Ln2: optimizations.NewLayerNorm(eps),
	}
}

func (l *EncoderLayer) Forward(X *mat.Dense) *mat.Dense {
	out, _ := l.ForwardTrain(X)
	return out
}

func (l *EncoderLayer) ForwardTrain(X *mat.Dense) (*mat.Dense, *EncoderCache) {
	if X.IsEmpty() {
		panic("EncoderLayer.Forward: empty input")
	}
	if _, c := X.Dims(); c != l.FFN.ModelDim {
		panic(fmt.Sprintf("EncoderLayer.Forward: input width %d, want %d", c, l.FFN.ModelDim))
	}
	attnOut, A := selfAttention(X)
	n1, ln1 := l.Ln1.Forward(utils.Add(X, attnOut))
	f, fc := l.FFN.forward(n1)
	out, ln2 := l.Ln2.Forward(utils.Add(n1, f))
	return out, &EncoderCache{X: X, A: A, Ln1: ln1, Ln2: ln2, FFN: fc}
}

// Backward accumulates FFN gradients and returns dX.
func (l *EncoderLayer) Backward(c *EncoderCache, dY *mat.Dense) *mat.Dense {
	dr2 := l.Ln2.Backward(c.Ln2, dY)
	dn1 := utils.Add(dr2, l.FFN.backward(c.FFN, dr2))
	dr1 := l.Ln1.Backward(c.Ln1, dn1)
	return utils.Add(dr1, selfAttentionBackward(c.X, c.A, dr1))
}

func (l *EncoderLayer) ParametersMut() []*float64 { return l.FFN.ParametersMut() }

func (l *EncoderLayer) Parameters(prefix string) []optimizations.Param {
	return l.FFN.Parameters(prefix + ".ffn")
}

func (l *EncoderLayer) ZeroGrad() { l.FFN.ZeroGrad() }
