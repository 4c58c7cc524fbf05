package IO

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/params"
)

// BuildVocab assigns the special tokens the first ids, then every word of texts
// ordered by descending frequency (ties broken alphabetically). maxSize <= 0
// keeps every word; otherwise the vocabulary is capped at maxSize entries.
// specials[0] is the pad token and specials[1] the unknown token.
func BuildVocab(texts []string, specials []string, maxSize int) (params.Vocabulary, error) {
	if len(specials) < 2 {
		return params.Vocabulary{}, fmt.Errorf("build vocab: need pad and unknown tokens, got %v", specials)
	}
	v := params.Vocabulary{
		TokenToID: make(map[string]int),
		PadToken:  specials[0],
		UnkToken:  specials[1],
	}
	add := func(tok string) {
		if _, ok := v.TokenToID[tok]; ok {
			return
		}
		v.TokenToID[tok] = len(v.IDToToken)
		v.IDToToken = append(v.IDToToken, tok)
	}
	for _, s := range specials {
		if s != "" {
			add(s)
		}
	}

	counts := make(map[string]int)
	for _, text := range texts {
		words, err := Words(text)
		if err != nil {
			return params.Vocabulary{}, fmt.Errorf("build vocab: %w", err)
		}
		for _, w := range words {
			counts[w]++
		}
	}
	type kv struct {
		tok string
		n   int
	}
	ranked := make([]kv, 0, len(counts))
	for tok, n := range counts {
		ranked = append(ranked, kv{tok, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].tok < ranked[j].tok
	})
	for _, e := range ranked {
		if maxSize > 0 && len(v.IDToToken) >= maxSize {
			break
		}
		add(e.tok)
	}
	return v, nil
}

// ExportVocabJSON writes the vocabulary with stable formatting.
func ExportVocabJSON(v params.Vocabulary, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode vocab: %w", err)
	}
	return f.Close()
}

// ImportVocabJSON reads a vocabulary written by ExportVocabJSON.
func ImportVocabJSON(path string) (params.Vocabulary, error) {
	var v params.Vocabulary
	f, err := os.Open(path)
	if err != nil {
		return v, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&v); err != nil {
		return v, fmt.Errorf("decode vocab %s: %w", path, err)
	}
	if err := v.Validate(); err != nil {
		return v, fmt.Errorf("vocab %s: %w", path, err)
	}
	return v, nil
}
