package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// probFloor keeps log() finite when a probability underflows to zero.
const probFloor = 1e-12

// ---------- Loss ----------

// Softmax turns a (batch x classes) logits matrix into row-wise probabilities.
func Softmax(logits *mat.Dense) *mat.Dense {
	return RowSoftmax(logits)
}

func checkLabels(fn string, logits *mat.Dense, labels []int) {
	if logits.IsEmpty() {
		if len(labels) != 0 {
			panic(fmt.Sprintf("%s: %d labels for an empty batch", fn, len(labels)))
		}
		return
	}
	r, c := logits.Dims()
	if len(labels) != r {
		panic(fmt.Sprintf("%s: %d labels for %d rows", fn, len(labels), r))
	}
	for i, l := range labels {
		if l < 0 || l >= c {
			panic(fmt.Sprintf("%s: label %d at row %d outside [0,%d)", fn, l, i, c))
		}
	}
}

// CrossEntropyLoss is the mean negative log-probability of each row's true class.
// An empty batch has zero loss.
func CrossEntropyLoss(logits *mat.Dense, labels []int) float64 {
	checkLabels("CrossEntropyLoss", logits, labels)
	if len(labels) == 0 {
		return 0
	}
	probs := Softmax(logits)
	loss := 0.0
	for i, l := range labels {
		loss -= math.Log(math.Max(probs.At(i, l), probFloor))
	}
	return loss / float64(len(labels))
}

// CrossEntropyGradients is d(mean CE)/d(logits): (softmax - onehot) / batch.
func CrossEntropyGradients(logits *mat.Dense, labels []int) *mat.Dense {
	checkLabels("CrossEntropyGradients", logits, labels)
	if len(labels) == 0 {
		return &mat.Dense{}
	}
	grad := Softmax(logits)
	for i, l := range labels {
		grad.Set(i, l, grad.At(i, l)-1.0)
	}
	grad.Scale(1/float64(len(labels)), grad)
	return grad
}
