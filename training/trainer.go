package training

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/IO"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/optimizations"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/params"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/transformer"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyDataset    = errors.New("empty dataset")
	ErrLabelOutOfRange = errors.New("label out of range")
)

type EpochStats struct {
	Epoch    int
	Loss     float64 // mean over batches
	Accuracy float64 // fraction in [0,1]
	Duration time.Duration
}

type Trainer struct {
	Model     *transformer.Transformer
	Optimizer *optimizations.Group
	Config    params.TrainingConfig
	Logger    *log.Logger

	epoch int // epochs completed, survives checkpoint restore
}

func NewTrainer(model *transformer.Transformer, cfg params.TrainingConfig) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opt, err := optimizations.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Trainer{
		Model:     model,
		Optimizer: optimizations.NewGroup(opt),
		Config:    cfg,
		Logger:    log.Default(),
	}, nil
}

func (tr *Trainer) logf(format string, args ...any) {
	if tr.Logger != nil {
		tr.Logger.Printf(format, args...)
	}
}

// ValidateLabels reports the first label outside [0, numClasses).
func ValidateLabels(labels []int, numClasses int) error {
	for i, l := range labels {
		if l < 0 || l >= numClasses {
			return fmt.Errorf("%w: example %d has label %d, model has %d classes", ErrLabelOutOfRange, i, l, numClasses)
		}
	}
	return nil
}

// TrainFile loads a dataset and trains on it.
func (tr *Trainer) TrainFile(path string, loader *IO.Loader) ([]EpochStats, error) {
	inputs, labels, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load training data: %w", err)
	}
	return tr.Train(inputs, labels)
}

// Train runs Config.Epochs passes over the data in order. Labels are checked
// before any parameter is touched.
func (tr *Trainer) Train(inputs [][]int, labels []int) ([]EpochStats, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(inputs) != len(labels) {
		return nil, fmt.Errorf("%d inputs but %d labels", len(inputs), len(labels))
	}
	if err := ValidateLabels(labels, tr.Model.Config.NumClasses); err != nil {
		return nil, err
	}

	var runLog *RunLog
	if tr.Config.LogPath != "" {
		var err error
		if runLog, err = OpenRunLog(tr.Config.LogPath); err != nil {
			return nil, err
		}
		defer runLog.Close()
	}

	batches := IO.MakeBatches(inputs, labels, tr.Config.BatchSize)
	var history []EpochStats
	bestLoss := -1.0
	noImprovement := 0

	for e := 0; e < tr.Config.Epochs; e++ {
		stats := tr.runEpoch(batches)
		tr.epoch++
		stats.Epoch = tr.epoch
		history = append(history, stats)
		tr.logf("Epoch %d | loss %.5f | accuracy %.2f%% | %s",
			stats.Epoch, stats.Loss, stats.Accuracy*100, stats.Duration.Round(time.Millisecond))

		if runLog != nil {
			if err := runLog.Append(stats); err != nil {
				return history, err
			}
		}
		if tr.Config.SaveEveryEpoch {
			if err := tr.save(); err != nil {
				return history, err
			}
		}

		if bestLoss < 0 || stats.Loss < bestLoss {
			bestLoss = stats.Loss
			noImprovement = 0
		} else {
			noImprovement++
			if tr.Config.Patience > 0 && noImprovement >= tr.Config.Patience {
				tr.logf("Early stopping after %d epochs without improvement", noImprovement)
				break
			}
		}
	}
	if err := tr.save(); err != nil {
		return history, err
	}
	return history, nil
}

func (tr *Trainer) runEpoch(batches []IO.Batch) EpochStats {
	start := time.Now()
	var totalLoss float64
	var steps, correct, seen int
	for _, b := range batches {
		if len(b.Inputs) == 0 {
			continue
		}
		loss, hits := tr.Step(b.Inputs, b.Labels)
		totalLoss += loss
		correct += hits
		seen += len(b.Labels)
		steps++
	}
	stats := EpochStats{Duration: time.Since(start)}
	if steps > 0 {
		stats.Loss = totalLoss / float64(steps)
		stats.Accuracy = float64(correct) / float64(seen)
	}
	return stats
}

// Step trains on one batch and returns its loss and number of correct predictions.
func (tr *Trainer) Step(inputs [][]int, labels []int) (float64, int) {
	m := tr.Model
	if tr.Config.UpdateRule == params.UpdateFlat {
		logits := m.Forward(inputs)
		loss := utils.CrossEntropyLoss(logits, labels)
		m.ApplyFlatGradients(utils.CrossEntropyGradients(logits, labels), tr.Optimizer.LearningRate())
		return loss, countCorrect(logits, labels)
	}

	m.ZeroGrad()
	logits, cache := m.ForwardTrain(inputs)
	loss := utils.CrossEntropyLoss(logits, labels)
	m.Backward(cache, utils.CrossEntropyGradients(logits, labels))
	utils.ClipGrads(tr.Config.GradClip, m.Gradients()...)
	tr.Optimizer.Step(m.Parameters())
	return loss, countCorrect(logits, labels)
}

func countCorrect(logits *mat.Dense, labels []int) int {
	n := 0
	for i, pred := range utils.ArgMaxRows(logits) {
		if pred == labels[i] {
			n++
		}
	}
	return n
}

func (tr *Trainer) save() error {
	if tr.Config.ModelPath != "" {
		if err := tr.Model.Save(tr.Config.ModelPath); err != nil {
			return err
		}
	}
	if tr.Config.CheckpointPath != "" {
		if err := tr.SaveCheckpoint(tr.Config.CheckpointPath); err != nil {
			return err
		}
	}
	return nil
}
