package training

import (
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/IO"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/transformer"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/mat"
)

// Predictor classifies raw text with a trained model.
type Predictor struct {
	Model     *transformer.Transformer
	Tokenizer *IO.Tokenizer
}

// NewPredictor builds a tokenizer over the model's own vocabulary.
func NewPredictor(model *transformer.Transformer, maxLen int) (*Predictor, error) {
	tok, err := IO.NewTokenizer(model.Vocab, maxLen)
	if err != nil {
		return nil, err
	}
	return &Predictor{Model: model, Tokenizer: tok}, nil
}

func LoadPredictor(modelPath string, maxLen int) (*Predictor, error) {
	model, err := transformer.Load(modelPath)
	if err != nil {
		return nil, err
	}
	return NewPredictor(model, maxLen)
}

// Predict returns the most likely class and the full probability vector.
func (p *Predictor) Predict(text string) (int, []float64, error) {
	classes, probs, err := p.PredictBatch([]string{text})
	if err != nil {
		return 0, nil, err
	}
	return classes[0], probs.RawRowView(0), nil
}

func (p *Predictor) PredictBatch(texts []string) ([]int, *mat.Dense, error) {
	if len(texts) == 0 {
		return nil, &mat.Dense{}, nil
	}
	batch := make([][]int, len(texts))
	for i, text := range texts {
		ids, err := p.Tokenizer.Encode(text)
		if err != nil {
			return nil, nil, err
		}
		batch[i] = ids
	}
	probs := utils.Softmax(p.Model.Forward(batch))
	return utils.ArgMaxRows(probs), probs, nil
}
