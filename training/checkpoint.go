package training

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/optimizations"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/params"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/transformer"
)

// checkpoint is everything needed to resume training: weights, optimizer
// moments and the epoch counter.
type checkpoint struct {
	Epoch     int
	Model     transformer.Snapshot
	Optimizer optimizations.Snapshot
}

// SaveCheckpoint persists the trainer state using gob.
func (tr *Trainer) SaveCheckpoint(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	cp := checkpoint{
		Epoch:     tr.epoch,
		Model:     tr.Model.Snapshot(),
		Optimizer: tr.Optimizer.Snapshot(),
	}
	if err := gob.NewEncoder(f).Encode(cp); err != nil {
		f.Close()
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return f.Close()
}

// LoadCheckpoint replaces the trainer's model and optimizer state. The
// checkpoint must share the current model's vocabulary, since inputs are
// encoded with it. On error the trainer is left untouched.
func (tr *Trainer) LoadCheckpoint(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	defer f.Close()
	var cp checkpoint
	if err := gob.NewDecoder(f).Decode(&cp); err != nil {
		return fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	model, err := transformer.FromSnapshot(cp.Model)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", path, err)
	}
	if !sameVocab(model.Vocab, tr.Model.Vocab) {
		return fmt.Errorf("checkpoint %s: vocabulary differs from the model being trained (%d vs %d tokens)",
			path, model.Vocab.Len(), tr.Model.Vocab.Len())
	}
	if err := checkSlots(cp.Optimizer, model); err != nil {
		return fmt.Errorf("checkpoint %s: %w", path, err)
	}
	if err := tr.Optimizer.Restore(cp.Optimizer); err != nil {
		return fmt.Errorf("checkpoint %s: %w", path, err)
	}
	tr.Model = model
	tr.epoch = cp.Epoch
	return nil
}

// checkSlots requires every optimizer slot to belong to a parameter of model
// with the same shape.
func checkSlots(s optimizations.Snapshot, model *transformer.Transformer) error {
	shapes := make(map[string][2]int)
	for _, p := range model.Parameters() {
		r, c := p.Value.Dims()
		shapes[p.Name] = [2]int{r, c}
	}
	for name, st := range s.Slots {
		want, ok := shapes[name]
		if !ok {
			return fmt.Errorf("%w: optimizer slot %q has no matching parameter", transformer.ErrCorruptModel, name)
		}
		if st.Rows != want[0] || st.Cols != want[1] {
			return fmt.Errorf("%w: optimizer slot %q is %dx%d, parameter is %dx%d",
				transformer.ErrCorruptModel, name, st.Rows, st.Cols, want[0], want[1])
		}
	}
	return nil
}

// Epoch is the number of completed epochs, including restored ones.
func (tr *Trainer) Epoch() int { return tr.epoch }

// Resume loads a checkpoint and shortens Config.Epochs to the epochs still
// missing from the configured total.
func (tr *Trainer) Resume(path string) error {
	if err := tr.LoadCheckpoint(path); err != nil {
		return err
	}
	tr.Config.Epochs = max(tr.Config.Epochs-tr.epoch, 0)
	return nil
}

func sameVocab(a, b params.Vocabulary) bool {
	return a.PadToken == b.PadToken && a.UnkToken == b.UnkToken && slices.Equal(a.IDToToken, b.IDToToken)
}
