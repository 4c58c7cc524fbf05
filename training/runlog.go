package training

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// RunLog appends one CSV row per epoch: epoch,loss,accuracy,seconds.
type RunLog struct {
	f *os.File
	w *csv.Writer
}

func OpenRunLog(path string) (*RunLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}
	rl := &RunLog{f: f, w: csv.NewWriter(f)}
	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		if err := rl.write([]string{"epoch", "loss", "accuracy", "seconds"}); err != nil {
			f.Close()
			return nil, err
		}
	}
	return rl, nil
}

func (rl *RunLog) write(rec []string) error {
	if err := rl.w.Write(rec); err != nil {
		return fmt.Errorf("run log: %w", err)
	}
	rl.w.Flush()
	return rl.w.Error()
}

func (rl *RunLog) Append(s EpochStats) error {
	return rl.write([]string{
		strconv.Itoa(s.Epoch),
		strconv.FormatFloat(s.Loss, 'f', 6, 64),
		strconv.FormatFloat(s.Accuracy, 'f', 6, 64),
		strconv.FormatFloat(s.Duration.Seconds(), 'f', 3, 64),
	})
}

func (rl *RunLog) Close() error { return rl.f.Close() }
