package training

import (
	"fmt"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/IO"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/transformer"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/stat"
)

// Report summarises a model on a labelled dataset. Precision, recall and F1
// are for PositiveClass against everything else.
type Report struct {
	Examples      int
	Loss          float64
	Accuracy      float64
	Precision     float64
	Recall        float64
	F1            float64
	PositiveClass int
	Confusion     [][]int // [true][predicted]
}

func (r Report) String() string {
	return fmt.Sprintf("examples=%d loss=%.5f accuracy=%.2f%% precision=%.4f recall=%.4f f1=%.4f",
		r.Examples, r.Loss, r.Accuracy*100, r.Precision, r.Recall, r.F1)
}

type Evaluator struct {
	Model         *transformer.Transformer
	BatchSize     int
	PositiveClass int
}

func (ev *Evaluator) EvaluateFile(path string, loader *IO.Loader) (Report, error) {
	inputs, labels, err := loader.Load(path)
	if err != nil {
		return Report{}, fmt.Errorf("load evaluation data: %w", err)
	}
	return ev.Evaluate(inputs, labels)
}

// Evaluate runs the model over inputs without touching its parameters.
func (ev *Evaluator) Evaluate(inputs [][]int, labels []int) (Report, error) {
	if len(inputs) == 0 {
		return Report{}, ErrEmptyDataset
	}
	if len(inputs) != len(labels) {
		return Report{}, fmt.Errorf("%d inputs but %d labels", len(inputs), len(labels))
	}
	classes := ev.Model.Config.NumClasses
	if err := ValidateLabels(labels, classes); err != nil {
		return Report{}, err
	}
	if ev.PositiveClass < 0 || ev.PositiveClass >= classes {
		return Report{}, fmt.Errorf("positive class %d outside [0,%d)", ev.PositiveClass, classes)
	}
	size := ev.BatchSize
	if size <= 0 {
		size = len(inputs)
	}

	rep := Report{Examples: len(inputs), PositiveClass: ev.PositiveClass, Confusion: make([][]int, classes)}
	for i := range rep.Confusion {
		rep.Confusion[i] = make([]int, classes)
	}
	var losses, weights []float64
	for _, b := range IO.MakeBatches(inputs, labels, size) {
		logits := ev.Model.Forward(b.Inputs)
		losses = append(losses, utils.CrossEntropyLoss(logits, b.Labels))
		weights = append(weights, float64(len(b.Labels)))
		for i, pred := range utils.ArgMaxRows(logits) {
			rep.Confusion[b.Labels[i]][pred]++
		}
	}
	rep.Loss = stat.Mean(losses, weights)

	var correct int
	for c := 0; c < classes; c++ {
		correct += rep.Confusion[c][c]
	}
	rep.Accuracy = float64(correct) / float64(len(inputs))

	p := ev.PositiveClass
	tp := rep.Confusion[p][p]
	var fp, fn int
	for c := 0; c < classes; c++ {
		if c != p {
			fp += rep.Confusion[c][p]
			fn += rep.Confusion[p][c]
		}
	}
	rep.Precision = ratio(tp, tp+fp)
	rep.Recall = ratio(tp, tp+fn)
	if rep.Precision+rep.Recall > 0 {
		rep.F1 = 2 * rep.Precision * rep.Recall / (rep.Precision + rep.Recall)
	}
	return rep, nil
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
