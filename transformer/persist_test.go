package transformer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m := newTestModel(t, testConfig())
	path := filepath.Join(t.TempDir(), "nested", "model.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	batch := [][]int{{2, 3, 4}, {5}, {}}
	if !mat.Equal(m.Forward(batch), loaded.Forward(batch)) {
		t.Fatal("loaded model gives different logits")
	}
	if loaded.Vocab.ID("money") != 3 || loaded.Config != m.Config {
		t.Fatal("config or vocabulary not restored")
	}
}

func TestLoadRejectsCorruptShapes(t *testing.T) {
	m := newTestModel(t, testConfig())
	s := m.Snapshot()
	s.Layers[1].W2.Data = s.Layers[1].W2.Data[1:]

	path := filepath.Join(t.TempDir(), "bad.json")
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrCorruptModel) {
		t.Fatalf("Load error = %v, want ErrCorruptModel", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
