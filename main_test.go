package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/IO"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/params"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/training"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/transformer"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
)

func TestReadAccuracies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	data := "epoch,loss,accuracy,seconds\n1,0.69,0.5,0.1\n2,0.40,0.875,0.1\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	acc, err := readAccuracies(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(acc) != 2 || acc[0] != 0.5 || acc[1] != 0.875 {
		t.Fatalf("accuracies = %v", acc)
	}

	if err := os.WriteFile(path, []byte("epoch,loss\n1,0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readAccuracies(path); err == nil {
		t.Fatal("expected an error for a log without an accuracy column")
	}
}

func TestAsciiPlot(t *testing.T) {
	var buf bytes.Buffer
	asciiPlot(&buf, []float64{1, 0.05, 0.5})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 12 {
		t.Fatalf("got %d lines, want 12", len(lines))
	}
	if lines[0] != "█  " || lines[9] != "█ █" {
		t.Fatalf("unexpected bars: %q / %q", lines[0], lines[9])
	}

	buf.Reset()
	asciiPlot(&buf, nil)
	if buf.String() != "no data to plot\n" {
		t.Fatalf("empty plot = %q", buf.String())
	}
}

func TestClassifyCLI(t *testing.T) {
	cfg := params.DefaultConfig()
	cfg.Model = params.ModelConfig{
		NumLayers: 1, ModelDim: 4, NumHeads: 2, FeedForwardDim: 8,
		NumClasses: 2, Epsilon: 1e-6, Pooling: params.PoolMean,
	}
	vocab, err := IO.BuildVocab([]string{"free money", "hello friend"}, cfg.SpecialTokens(), 0)
	if err != nil {
		t.Fatal(err)
	}
	model, err := transformer.New(cfg.Model, vocab, utils.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}
	pred, err := training.NewPredictor(model, 8)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	ClassifyCLI(pred, strings.NewReader("free money\n\nhello\nexit\nignored\n"), &out)
	if got := strings.Count(out.String(), "Class: "); got != 2 {
		t.Fatalf("printed %d classifications, want 2:\n%s", got, out.String())
	}

	// End of input without "exit" still classifies the last line.
	out.Reset()
	ClassifyCLI(pred, strings.NewReader("hello friend"), &out)
	if !strings.Contains(out.String(), "Class: ") {
		t.Fatalf("missing classification:\n%s", out.String())
	}
}
