package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/IO"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/params"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/training"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/transformer"
	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/utils"
)

var (
	configPath  string
	trainPath   string
	evalPath    string
	predictText string
	exportDB    string
	cliFlag     bool
	forceFlag   bool
	resumeFlag  bool
	plotFlag    bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "JSON training config (defaults are used for missing fields)")
	flag.StringVar(&trainPath, "train", "", "Train on a .csv, .json or .sqlite dataset")
	flag.StringVar(&evalPath, "eval", "", "Evaluate the saved model on a labelled dataset")
	flag.StringVar(&predictText, "predict", "", "Classify a single piece of text")
	flag.StringVar(&exportDB, "export-db", "", "Copy the -train dataset into a SQLite file and exit")
	flag.BoolVar(&cliFlag, "cli", false, "Classify lines typed on stdin")
	flag.BoolVar(&forceFlag, "force", false, "Rebuild the vocabulary even if vocab.json exists")
	flag.BoolVar(&resumeFlag, "resume", false, "Resume training from checkpoint_path up to the configured total of epochs")
	flag.BoolVar(&plotFlag, "plot", false, "Plot per-epoch accuracy from the run log")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := params.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = params.LoadConfig(configPath); err != nil {
			return err
		}
	}

	if exportDB != "" {
		if trainPath == "" {
			return errors.New("-export-db needs -train")
		}
		samples, err := IO.ReadSamples(trainPath)
		if err != nil {
			return err
		}
		if err := IO.ExportSQLite(exportDB, samples); err != nil {
			return err
		}
		fmt.Printf("✅ Exported %d samples to %s\n", len(samples), exportDB)
		return nil
	}

	var model *transformer.Transformer
	if trainPath != "" {
		var err error
		if model, err = train(cfg); err != nil {
			return err
		}
	}

	needModel := evalPath != "" || predictText != "" || cliFlag
	if needModel && model == nil {
		var err error
		if model, err = transformer.Load(cfg.ModelPath); err != nil {
			return fmt.Errorf("no trained model (run with -train first): %w", err)
		}
		fmt.Println("⚡ Loaded model from", cfg.ModelPath)
	}

	if evalPath != "" {
		tok, err := IO.NewTokenizer(model.Vocab, cfg.MaxSeqLen)
		if err != nil {
			return err
		}
		ev := &training.Evaluator{Model: model, BatchSize: cfg.BatchSize, PositiveClass: cfg.PositiveClass}
		rep, err := ev.EvaluateFile(evalPath, &IO.Loader{Tokenizer: tok})
		if err != nil {
			return err
		}
		fmt.Println("Evaluation:", rep)
	}

	if predictText != "" || cliFlag {
		pred, err := training.NewPredictor(model, cfg.MaxSeqLen)
		if err != nil {
			return err
		}
		if predictText != "" {
			class, probs, err := pred.Predict(predictText)
			if err != nil {
				return err
			}
			fmt.Printf("prediction: %d %s\n", class, formatProbs(probs))
		}
		if cliFlag {
			ClassifyCLI(pred, os.Stdin, os.Stdout)
		}
	}

	if plotFlag {
		acc, err := readAccuracies(cfg.LogPath)
		if err != nil {
			return err
		}
		asciiPlot(os.Stdout, acc)
	}

	if trainPath == "" && !needModel && !plotFlag {
		fmt.Println("No flag passed. Use -train to fit a model, -eval/-predict/-cli to use one.")
	}
	return nil
}

func train(cfg params.TrainingConfig) (*transformer.Transformer, error) {
	fmt.Println("Loading training data...")
	samples, err := IO.ReadSamples(trainPath)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Finished loading %d training records.\n", len(samples))

	vocab, err := loadOrBuildVocab(cfg, samples)
	if err != nil {
		return nil, err
	}
	tok, err := IO.NewTokenizer(vocab, cfg.MaxSeqLen)
	if err != nil {
		return nil, err
	}
	inputs, labels, err := (&IO.Loader{Tokenizer: tok}).Encode(samples)
	if err != nil {
		return nil, err
	}

	model, err := transformer.New(cfg.Model, vocab, utils.NewSource(cfg.Seed))
	if err != nil {
		return nil, err
	}
	tr, err := training.NewTrainer(model, cfg)
	if err != nil {
		return nil, err
	}
	if resumeFlag && cfg.CheckpointPath != "" && fileExists(cfg.CheckpointPath) {
		if err := tr.Resume(cfg.CheckpointPath); err != nil {
			return nil, err
		}
		fmt.Printf("⚡ Resumed from %s after epoch %d, %d epochs left\n", cfg.CheckpointPath, tr.Epoch(), tr.Config.Epochs)
	}
	history, err := tr.Train(inputs, labels)
	if err != nil {
		return nil, err
	}
	if n := len(history); n > 0 {
		last := history[n-1]
		fmt.Printf("✨ Training complete: %d epochs, loss %.5f, accuracy %.2f%%\n", n, last.Loss, last.Accuracy*100)
	}
	return tr.Model, nil
}

// loadOrBuildVocab reuses vocab_path when it exists; otherwise the
// vocabulary is built from the training texts and exported there.
func loadOrBuildVocab(cfg params.TrainingConfig, samples []IO.Sample) (params.Vocabulary, error) {
	if cfg.VocabPath != "" && fileExists(cfg.VocabPath) && !forceFlag {
		fmt.Println("⚡ Using cached", cfg.VocabPath)
		return IO.ImportVocabJSON(cfg.VocabPath)
	}
	vocab, err := IO.BuildVocab(IO.Texts(samples), cfg.SpecialTokens(), cfg.MaxVocabSize)
	if err != nil {
		return params.Vocabulary{}, err
	}
	if cfg.VocabPath != "" {
		if err := IO.ExportVocabJSON(vocab, cfg.VocabPath); err != nil {
			return params.Vocabulary{}, err
		}
		fmt.Printf("✅ Exported %s (%d tokens)\n", cfg.VocabPath, vocab.Len())
	}
	return vocab, nil
}

func formatProbs(probs []float64) string {
	parts := make([]string, len(probs))
	for i, p := range probs {
		parts[i] = fmt.Sprintf("%d:%.4f", i, p)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
