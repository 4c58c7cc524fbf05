package transformer

import (
	"fmt"
	"math"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/mat"
)

// AttentionWeights returns softmax(Q·Kᵀ / sqrt(d)) row by row.
func AttentionWeights(Q, K *mat.Dense) *mat.Dense {
	if Q.IsEmpty() || K.IsEmpty() {
		panic("AttentionWeights: empty query or key")
	}
	_, dq := Q.Dims()
	_, dk := K.Dims()
	if dq != dk {
		panic(fmt.Sprintf("AttentionWeights: query width %d != key width %d", dq, dk))
	}
	var scores mat.Dense
	scores.Mul(Q, K.T())
	scores.Scale(1.0/math.Sqrt(float64(dq)), &scores)
	return utils.RowSoftmax(&scores)
}

// ScaledDotProductAttention computes softmax(Q·Kᵀ / sqrt(d))·V.
func ScaledDotProductAttention(Q, K, V *mat.Dense) *mat.Dense {
	if V.IsEmpty() {
		panic("ScaledDotProductAttention: empty value")
	}
	kr, _ := K.Dims()
	if vr, _ := V.Dims(); vr != kr {
		panic(fmt.Sprintf("ScaledDotProductAttention: %d keys but %d values", kr, vr))
	}
	A := AttentionWeights(Q, K)
	return utils.Dot(A, V)
}

// MultiHeadAttention splits Q, K and V column-wise into numHeads slices,
// attends within each and concatenates the results. There is no output projection.
func MultiHeadAttention(Q, K, V *mat.Dense, numHeads int) *mat.Dense {
	if Q.IsEmpty() || K.IsEmpty() || V.IsEmpty() {
		panic("MultiHeadAttention: empty input")
	}
	qr, d := Q.Dims()
	kr, kd := K.Dims()
	vr, vd := V.Dims()
	if numHeads <= 0 || d%numHeads != 0 {
		panic(fmt.Sprintf("MultiHeadAttention: width %d not divisible by %d heads", d, numHeads))
	}
	if kd != d || vd != d || kr != vr {
		panic(fmt.Sprintf("MultiHeadAttention: incompatible shapes Q %dx%d K %dx%d V %dx%d", qr, d, kr, kd, vr, vd))
	}
	dHead := d / numHeads
	out := mat.NewDense(qr, d, nil)
	for h := 0; h < numHeads; h++ {
		lo, hi := h*dHead, (h+1)*dHead
		q := Q.Slice(0, qr, lo, hi).(*mat.Dense)
		k := K.Slice(0, kr, lo, hi).(*mat.Dense)
		v := V.Slice(0, vr, lo, hi).(*mat.Dense)
		out.Slice(0, qr, lo, hi).(*mat.Dense).Copy(ScaledDotProductAttention(q, k, v))
	}
	return out
}

// selfAttention runs SDPA with Q = K = V = X and keeps the weights for backward.
func selfAttention(X *mat.Dense) (Y, A *mat.Dense) {
	A = AttentionWeights(X, X)
	return utils.Dot(A, X), A
}

// selfAttentionBackward returns dX for Y = softmax(s·X·Xᵀ)·X, where X feeds all
// three of query, key and value:
// dX = Aᵀ·dY + s·dS·X + s·dSᵀ·X, dS = softmax'(dY·Xᵀ).
func selfAttentionBackward(X, A, dY *mat.Dense) *mat.Dense {
	_, d := X.Dims()
	s := 1.0 / math.Sqrt(float64(d))

	dX := utils.Dot(A.T(), dY)
	dS := utils.SoftmaxBackward(utils.Dot(dY, X.T()), A)

	var qk mat.Dense
	qk.Mul(dS, X)
	dX.Add(dX, utils.Scale(s, &qk))
	qk.Mul(dS.T(), X)
	dX.Add(dX, utils.Scale(s, &qk))
	return dX
}
