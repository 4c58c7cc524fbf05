package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Default special tokens. They always occupy the first ids of a built vocabulary.
const (
	PadToken = "[PAD]"
	UnkToken = "[UNK]"
	ClsToken = "[CLS]"
	SepToken = "[SEP]"
)

// Pooling modes for collapsing a sequence into one vector.
const (
	PoolMean  = "mean"
	PoolFirst = "first"
)

// Update rules understood by the trainer.
const (
	UpdateBackprop = "backprop"
	UpdateFlat     = "flat"
)

// Embed structs
type Vocabulary struct {
	TokenToID map[string]int `json:"token_to_id"`
	IDToToken []string       `json:"id_to_token"`
	PadToken  string         `json:"pad_token"`
	UnkToken  string         `json:"unk_token"`
}

func (v Vocabulary) Len() int { return len(v.IDToToken) }

// ID returns the id of tok, or the unknown-token id when tok is not in the vocabulary.
func (v Vocabulary) ID(tok string) int {
	if id, ok := v.TokenToID[tok]; ok {
		return id
	}
	return v.UnkID()
}

func (v Vocabulary) PadID() int { return v.TokenToID[v.PadToken] }
func (v Vocabulary) UnkID() int { return v.TokenToID[v.UnkToken] }

// Validate checks that the two lookup directions agree and that pad/unk exist.
func (v Vocabulary) Validate() error {
	if len(v.IDToToken) == 0 {
		return errors.New("vocabulary is empty")
	}
	if len(v.TokenToID) != len(v.IDToToken) {
		return fmt.Errorf("vocabulary maps disagree: %d tokens vs %d ids", len(v.TokenToID), len(v.IDToToken))
	}
	for id, tok := range v.IDToToken {
		if got, ok := v.TokenToID[tok]; !ok || got != id {
			return fmt.Errorf("vocabulary token %q has inconsistent id", tok)
		}
	}
	if _, ok := v.TokenToID[v.PadToken]; !ok {
		return fmt.Errorf("vocabulary is missing pad token %q", v.PadToken)
	}
	if _, ok := v.TokenToID[v.UnkToken]; !ok {
		return fmt.Errorf("vocabulary is missing unknown token %q", v.UnkToken)
	}
	return nil
}

// ModelConfig is the architecture record persisted alongside the weights.
type ModelConfig struct {
	NumLayers      int     `json:"num_layers"`
	ModelDim       int     `json:"model_dim"`
	NumHeads       int     `json:"num_heads"`
	FeedForwardDim int     `json:"feed_forward_dim"`
	NumClasses     int     `json:"num_classes"`
	Epsilon        float64 `json:"epsilon"` // layer norm stability constant
	Pooling        string  `json:"pooling"`
}

func (c ModelConfig) Validate() error {
	switch {
	case c.NumLayers < 0:
		return fmt.Errorf("num_layers must be >= 0, got %d", c.NumLayers)
	case c.ModelDim <= 0:
		return fmt.Errorf("model_dim must be positive, got %d", c.ModelDim)
	case c.NumHeads <= 0:
		return fmt.Errorf("num_heads must be positive, got %d", c.NumHeads)
	case c.ModelDim%c.NumHeads != 0:
		return fmt.Errorf("model_dim %d is not divisible by num_heads %d", c.ModelDim, c.NumHeads)
	case c.FeedForwardDim <= 0:
		return fmt.Errorf("feed_forward_dim must be positive, got %d", c.FeedForwardDim)
	case c.NumClasses < 2:
		return fmt.Errorf("num_classes must be >= 2, got %d", c.NumClasses)
	case c.Epsilon <= 0:
		return fmt.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	switch c.Pooling {
	case PoolMean, PoolFirst:
	default:
		return fmt.Errorf("unknown pooling %q", c.Pooling)
	}
	return nil
}

type TrainingConfig struct {
	// Core transformer parameters
	Model ModelConfig `json:"model"`

	// Tokenization
	MaxSeqLen    int    `json:"max_seq_len"`
	MaxVocabSize int    `json:"max_vocab_size"` // 0 keeps every token
	PadToken     string `json:"pad_token"`
	UnkToken     string `json:"unk_token"`
	ClsToken     string `json:"cls_token"`
	SepToken     string `json:"sep_token"`

	// Optimization
	Optimizer    string  `json:"optimizer"` // "sgd" or "adam"
	UpdateRule   string  `json:"update_rule"`
	LearningRate float64 `json:"learning_rate"`
	AdamBeta1    float64 `json:"adam_beta1"`
	AdamBeta2    float64 `json:"adam_beta2"`
	AdamEps      float64 `json:"adam_eps"`
	WeightDecay  float64 `json:"weight_decay"` // AdamW-style; 0 disables
	GradClip     float64 `json:"grad_clip"`    // <=0 disables

	// Loop
	Epochs         int    `json:"epochs"`
	BatchSize      int    `json:"batch_size"`
	Patience       int    `json:"patience"` // 0 disables early stopping
	Seed           uint64 `json:"seed"`
	PositiveClass  int    `json:"positive_class"`
	SaveEveryEpoch bool   `json:"save_every_epoch"`

	// Files
	ModelPath      string `json:"model_path"`
	VocabPath      string `json:"vocab_path"`
	LogPath        string `json:"log_path"`
	CheckpointPath string `json:"checkpoint_path"`
}

// SpecialTokens returns the configured special tokens in id order.
func (c TrainingConfig) SpecialTokens() []string {
	return []string{c.PadToken, c.UnkToken, c.ClsToken, c.SepToken}
}

func (c TrainingConfig) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return err
	}
	switch {
	case c.MaxSeqLen <= 0:
		return fmt.Errorf("max_seq_len must be positive, got %d", c.MaxSeqLen)
	case c.BatchSize <= 0:
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	case c.Epochs < 0:
		return fmt.Errorf("epochs must be >= 0, got %d", c.Epochs)
	case c.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be positive, got %g", c.LearningRate)
	case c.PadToken == "" || c.UnkToken == "":
		return errors.New("pad_token and unk_token must be set")
	case c.PositiveClass < 0 || c.PositiveClass >= c.Model.NumClasses:
		return fmt.Errorf("positive_class %d outside [0,%d)", c.PositiveClass, c.Model.NumClasses)
	}
	switch c.UpdateRule {
	case UpdateBackprop, UpdateFlat:
	default:
		return fmt.Errorf("unknown update_rule %q", c.UpdateRule)
	}
	switch strings.ToLower(strings.TrimSpace(c.Optimizer)) {
	case "sgd", "adam", "adamw":
	default:
		return fmt.Errorf("unknown optimizer %q", c.Optimizer)
	}
	// Adam bias correction divides by 1-beta^t.
	switch {
	case c.AdamBeta1 < 0 || c.AdamBeta1 >= 1:
		return fmt.Errorf("adam_beta1 must be in [0,1), got %g", c.AdamBeta1)
	case c.AdamBeta2 < 0 || c.AdamBeta2 >= 1:
		return fmt.Errorf("adam_beta2 must be in [0,1), got %g", c.AdamBeta2)
	case c.AdamEps <= 0:
		return fmt.Errorf("adam_eps must be positive, got %g", c.AdamEps)
	case c.WeightDecay < 0:
		return fmt.Errorf("weight_decay must be >= 0, got %g", c.WeightDecay)
	case c.Patience < 0:
		return fmt.Errorf("patience must be >= 0, got %d", c.Patience)
	}
	return nil
}

// DefaultConfig mirrors the constants the classifier has always shipped with.
func DefaultConfig() TrainingConfig {
	return TrainingConfig{
		Model: ModelConfig{
			NumLayers:      2,
			ModelDim:       64,
			NumHeads:       4, // dHead = ModelDim/NumHeads
			FeedForwardDim: 128,
			NumClasses:     2,
			Epsilon:        1e-6,
			Pooling:        PoolMean,
		},

		MaxSeqLen: 128,
		PadToken:  PadToken,
		UnkToken:  UnkToken,
		ClsToken:  ClsToken,
		SepToken:  SepToken,

		Optimizer:    "adam",
		UpdateRule:   UpdateBackprop,
		LearningRate: 0.001,
		AdamBeta1:    0.9,
		AdamBeta2:    0.999,
		AdamEps:      1e-8,
		GradClip:     1.0,

		Epochs:        10,
		BatchSize:     32,
		Patience:      3,
		Seed:          42,
		PositiveClass: 1,

		ModelPath: "models/classifier.json",
		VocabPath: "models/vocab.json",
		LogPath:   "training_log.csv",
	}
}

// LoadConfig overlays the JSON document at path on DefaultConfig.
func LoadConfig(path string) (TrainingConfig, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
