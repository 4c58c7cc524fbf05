package IO

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrUnsupportedFormat is returned for dataset files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// SQLiteTable is the table read from .db/.sqlite datasets: samples(text, label).
const SQLiteTable = "samples"

type Sample struct {
	Text  string `json:"text"`
	Label int    `json:"label"`
}

// Batch is one chunk of tokenized examples and their labels.
type Batch struct {
	Inputs [][]int
	Labels []int
}

// ReadSamples loads raw text/label pairs, choosing the reader by file extension.
func ReadSamples(path string) ([]Sample, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".json":
		return readJSON(path)
	case ".db", ".sqlite", ".sqlite3":
		return readSQLite(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

func parseLabel(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("label %q is not an integer", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("label %d is negative", n)
	}
	return n, nil
}

// readCSV expects a header row followed by text,label records.
func readCSV(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = 2

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	var out []Sample
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		label, err := parseLabel(rec[1])
		if err != nil {
			line, _ := r.FieldPos(1)
			return nil, fmt.Errorf("read %s line %d: %w", path, line, err)
		}
		out = append(out, Sample{Text: rec[0], Label: label})
	}
	return out, nil
}

// readJSON expects an array of {"text": ..., "label": ...} objects.
func readJSON(path string) ([]Sample, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []struct {
		Text  *string  `json:"text"`
		Label *float64 `json:"label"`
	}
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	out := make([]Sample, 0, len(recs))
	for i, r := range recs {
		if r.Text == nil || r.Label == nil {
			return nil, fmt.Errorf("decode %s: record %d needs text and label", path, i)
		}
		if *r.Label < 0 || *r.Label != math.Trunc(*r.Label) {
			return nil, fmt.Errorf("decode %s: record %d label %v is not a non-negative integer", path, i, *r.Label)
		}
		if *r.Label > math.MaxInt32 {
			return nil, fmt.Errorf("decode %s: record %d label %v is too large", path, i, *r.Label)
		}
		out = append(out, Sample{Text: *r.Text, Label: int(*r.Label)})
	}
	return out, nil
}

func readSQLite(path string) ([]Sample, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT text, label FROM " + SQLiteTable + " ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", path, err)
	}
	defer rows.Close()
	var out []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.Text, &s.Label); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		if s.Label < 0 {
			return nil, fmt.Errorf("%s: label %d is negative", path, s.Label)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ExportSQLite writes samples into a fresh samples table at path.
func ExportSQLite(path string, samples []Sample) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec("DROP TABLE IF EXISTS " + SQLiteTable); err != nil {
		return err
	}
	if _, err := db.Exec("CREATE TABLE " + SQLiteTable + " (text TEXT NOT NULL, label INTEGER NOT NULL)"); err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO " + SQLiteTable + " (text, label) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, s := range samples {
		if _, err := stmt.Exec(s.Text, s.Label); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert into %s: %w", path, err)
		}
	}
	return tx.Commit()
}

// Loader turns dataset files into padded id sequences.
type Loader struct {
	Tokenizer *Tokenizer
}

func (l *Loader) Load(path string) (inputs [][]int, labels []int, err error) {
	samples, err := ReadSamples(path)
	if err != nil {
		return nil, nil, err
	}
	return l.Encode(samples)
}

func (l *Loader) Encode(samples []Sample) (inputs [][]int, labels []int, err error) {
	inputs = make([][]int, len(samples))
	labels = make([]int, len(samples))
	for i, s := range samples {
		if inputs[i], err = l.Tokenizer.Encode(s.Text); err != nil {
			return nil, nil, err
		}
		labels[i] = s.Label
	}
	return inputs, labels, nil
}

// MakeBatches chunks inputs and labels, in order, into batches of at most size.
func MakeBatches(inputs [][]int, labels []int, size int) []Batch {
	if size <= 0 {
		panic(fmt.Sprintf("MakeBatches: batch size must be positive, got %d", size))
	}
	if len(inputs) != len(labels) {
		panic(fmt.Sprintf("MakeBatches: %d inputs but %d labels", len(inputs), len(labels)))
	}
	var out []Batch
	for lo := 0; lo < len(inputs); lo += size {
		hi := min(lo+size, len(inputs))
		out = append(out, Batch{Inputs: inputs[lo:hi], Labels: labels[lo:hi]})
	}
	return out
}

// Texts returns just the text column.
func Texts(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Text
	}
	return out
}
