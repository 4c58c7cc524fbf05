package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/training"
)

// ClassifyCLI reads one text per line and prints its predicted class until
// "exit" or end of input.
func ClassifyCLI(pred *training.Predictor, in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)
	fmt.Fprintln(out, "Classifier ready. Type 'exit' to quit.")
	for {
		fmt.Fprint(out, "Text: ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "exit" {
			return
		}
		if input != "" {
			class, probs, perr := pred.Predict(input)
			if perr != nil {
				fmt.Fprintln(out, "Error:", perr)
			} else {
				fmt.Fprintf(out, "Class: %d %s\n", class, formatProbs(probs))
			}
		}
		if err != nil {
			return
		}
	}
}
