package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// asciiPlot draws a crude vertical bar chart of values (0..1).
func asciiPlot(w io.Writer, values []float64) {
	const height = 10
	n := len(values)
	if n == 0 {
		fmt.Fprintln(w, "no data to plot")
		return
	}
	for row := height; row >= 1; row-- {
		threshold := float64(row) / float64(height)
		var b strings.Builder
		for _, v := range values {
			if v >= threshold {
				b.WriteString("█")
			} else {
				b.WriteString(" ")
			}
		}
		fmt.Fprintln(w, b.String())
	}
	fmt.Fprintln(w, strings.Repeat("─", n))
	var axis strings.Builder
	for i := range values {
		if i%5 == 0 {
			axis.WriteString(strconv.Itoa(i % 10))
		} else {
			axis.WriteString(" ")
		}
	}
	fmt.Fprintln(w, axis.String())
}

// readAccuracies pulls the accuracy column out of a training run log.
func readAccuracies(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read run log header: %w", err)
	}
	col := -1
	for i, h := range header {
		if h == "accuracy" {
			col = i
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("run log %s has no accuracy column", path)
	}

	var out []float64
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read run log: %w", err)
		}
		x, err := strconv.ParseFloat(record[col], 64)
		if err != nil {
			return nil, fmt.Errorf("run log line %d: %w", len(out)+2, err)
		}
		out = append(out, x)
	}
	return out, nil
}
