package transformer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/optimizations"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/params"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
	"gonum.org/v1/gonum/mat"
)

// ErrCorruptModel reports a model document whose shapes do not fit its config.
var ErrCorruptModel = errors.New("corrupt model")

type MatrixData struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

type LayerData struct {
	W1 MatrixData `json:"w1"`
	B1 MatrixData `json:"b1"`
	W2 MatrixData `json:"w2"`
	B2 MatrixData `json:"b2"`
}

// Snapshot is the serialisable form of a Transformer. It is written as JSON by
// Save and embedded in gob checkpoints by the trainer.
type Snapshot struct {
	Config     params.ModelConfig `json:"config"`
	Vocab      params.Vocabulary  `json:"vocab"`
	Embeddings MatrixData         `json:"embeddings"`
	Layers     []LayerData        `json:"layers"`
	HeadW      MatrixData         `json:"head_w"`
	HeadB      MatrixData         `json:"head_b"`
}

func toData(m *mat.Dense) MatrixData {
	r, c := m.Dims()
	return MatrixData{Rows: r, Cols: c, Data: utils.Flatten(m)}
}

func fromData(name string, d MatrixData, rows, cols int) (*mat.Dense, error) {
	if d.Rows != rows || d.Cols != cols || len(d.Data) != rows*cols {
		return nil, fmt.Errorf("%w: %s is %dx%d with %d values, want %dx%d",
			ErrCorruptModel, name, d.Rows, d.Cols, len(d.Data), rows, cols)
	}
	return mat.NewDense(rows, cols, append([]float64(nil), d.Data...)), nil
}

func (t *Transformer) Snapshot() Snapshot {
	s := Snapshot{
		Config:     t.Config,
		Vocab:      t.Vocab,
		Embeddings: toData(t.Embeddings.Table),
		Layers:     make([]LayerData, len(t.Layers)),
		HeadW:      toData(t.Head.W),
		HeadB:      toData(t.Head.B),
	}
	for i, l := range t.Layers {
		s.Layers[i] = LayerData{
			W1: toData(l.FFN.W1), B1: toData(l.FFN.B1),
			W2: toData(l.FFN.W2), B2: toData(l.FFN.B2),
		}
	}
	return s
}

// FromSnapshot rebuilds a Transformer, validating every shape against the config.
func FromSnapshot(s Snapshot) (*Transformer, error) {
	cfg := s.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	if err := s.Vocab.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	if len(s.Layers) != cfg.NumLayers {
		return nil, fmt.Errorf("%w: %d layers stored, config says %d", ErrCorruptModel, len(s.Layers), cfg.NumLayers)
	}
	d, h, v := cfg.ModelDim, cfg.FeedForwardDim, s.Vocab.Len()

	table, err := fromData("embeddings", s.Embeddings, v, d)
	if err != nil {
		return nil, err
	}
	t := &Transformer{
		Config: cfg,
		Vocab:  s.Vocab,
		Embeddings: &Embeddings{
			VocabSize: v, ModelDim: d, UnkID: s.Vocab.UnkID(),
			Table: table, Grad: utils.ZerosLike(table),
		},
		Layers: make([]*EncoderLayer, cfg.NumLayers),
	}
	for i, ld := range s.Layers {
		ff := &FeedForward{ModelDim: d, Hidden: h}
		prefix := fmt.Sprintf("layer %d ", i)
		if ff.W1, err = fromData(prefix+"w1", ld.W1, d, h); err != nil {
			return nil, err
		}
		if ff.B1, err = fromData(prefix+"b1", ld.B1, 1, h); err != nil {
			return nil, err
		}
		if ff.W2, err = fromData(prefix+"w2", ld.W2, h, d); err != nil {
			return nil, err
		}
		if ff.B2, err = fromData(prefix+"b2", ld.B2, 1, d); err != nil {
			return nil, err
		}
		ff.allocGrads()
		t.Layers[i] = &EncoderLayer{
			FFN: ff,
			Ln1: optimizations.NewLayerNorm(cfg.Epsilon),
			Ln2: optimizations.NewLayerNorm(cfg.Epsilon),
		}
	}
	head := &ClassificationHead{}
	if head.W, err = fromData("head w", s.HeadW, d, cfg.NumClasses); err != nil {
		return nil, err
	}
	if head.B, err = fromData("head b", s.HeadB, 1, cfg.NumClasses); err != nil {
		return nil, err
	}
	head.DW, head.DB = utils.ZerosLike(head.W), utils.ZerosLike(head.B)
	t.Head = head
	return t, nil
}

// Save writes the model (config, vocabulary and weights) as JSON.
func (t *Transformer) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(t.Snapshot()); err != nil {
		f.Close()
		return fmt.Errorf("encode model %s: %w", path, err)
	}
	return f.Close()
}

// Load reads a model written by Save.
func Load(path string) (*Transformer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	defer f.Close()
	var s Snapshot
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	t, err := FromSnapshot(s)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return t, nil
}
