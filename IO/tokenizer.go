package IO

import (
	"fmt"
	"maps"
	"strings"
	"unicode"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordlevel"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"

	"github.com/sarthak7awasthi/Transformer-Based-Text-Classification/params"
)

// Tokenizer maps raw text to fixed-length id sequences over a word-level vocabulary.
type Tokenizer struct {
	Vocab  params.Vocabulary
	MaxLen int
	tk     *tk.Tokenizer
}

var bertNorm = normalizer.NewBertNormalizer(true, true, false, false)

// Words lowercases text, drops everything but letters, digits and whitespace,
// and splits on whitespace.
func Words(text string) ([]string, error) {
	n, err := bertNorm.Normalize(normalizer.NewNormalizedFrom(text))
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, n.GetNormalized())
	return strings.Fields(clean), nil
}

func NewTokenizer(vocab params.Vocabulary, maxLen int) (*Tokenizer, error) {
	if err := vocab.Validate(); err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	if maxLen <= 0 {
		return nil, fmt.Errorf("tokenizer: max length must be positive, got %d", maxLen)
	}
	// wordlevel keeps the map it is given; hand it a private copy.
	model, err := wordlevel.New(maps.Clone(vocab.TokenToID), vocab.UnkToken)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	t := tk.NewTokenizer(model)
	t.WithNormalizer(bertNorm)
	t.WithPreTokenizer(pretokenizer.NewWhitespaceSplit())
	return &Tokenizer{Vocab: vocab, MaxLen: maxLen, tk: t}, nil
}

// Tokenize returns the unpadded id sequence for text.
func (t *Tokenizer) Tokenize(text string) ([]int, error) {
	words, err := Words(text)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return []int{}, nil
	}
	enc, err := t.tk.EncodeSingle(strings.Join(words, " "))
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", text, err)
	}
	return append([]int(nil), enc.Ids...), nil
}

// PadOrTruncate returns a copy of seq cut or padded with padID to exactly maxLen.
func PadOrTruncate(seq []int, maxLen, padID int) []int {
	out := make([]int, maxLen)
	n := copy(out, seq)
	for i := n; i < maxLen; i++ {
		out[i] = padID
	}
	return out
}

// Encode tokenizes text and pads or truncates it to MaxLen.
func (t *Tokenizer) Encode(text string) ([]int, error) {
	ids, err := t.Tokenize(text)
	if err != nil {
		return nil, err
	}
	return PadOrTruncate(ids, t.MaxLen, t.Vocab.PadID()), nil
}

// Decode maps ids back to tokens, using the unknown token for invalid ids.
func (t *Tokenizer) Decode(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if id >= 0 && id < t.Vocab.Len() {
			out[i] = t.Vocab.IDToToken[id]
		} else {
			out[i] = t.Vocab.UnkToken
		}
	}
	return out
}
