package embed

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// MaxSeqLen all-MiniLM-L6-v2 최대 시퀀스 길이
const MaxSeqLen = 256

// batch is a padded, flattened tokenizer output ready for inference.
type batch struct {
	inputIDs      []int64
	attentionMask []int64
	typeIDs       []int64
	size          int64
	seqLen        int64
}

// encoder turns one text into token ids.
type encoder interface {
	encode(text string) (ids, typeIDs, mask []int, err error)
}

// hfTokenizer loads a HuggingFace tokenizer.json.
type hfTokenizer struct {
	tk *tokenizer.Tokenizer
}

func newHFTokenizer(path string) (*hfTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: failed to load %s: %w", path, err)
	}
	return &hfTokenizer{tk: tk}, nil
}

func (t *hfTokenizer) encode(text string) ([]int, []int, []int, error) {
	en, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, nil, nil, err
	}
	return en.Ids, en.TypeIds, en.AttentionMask, nil
}

// tokenizeBatch encodes texts and pads them to the longest sequence,
// truncating to MaxSeqLen while keeping the trailing [SEP].
func tokenizeBatch(enc encoder, texts []string) (*batch, error) {
	type seq struct{ ids, types, mask []int }
	seqs := make([]seq, len(texts))

	var seqLen int
	for i, text := range texts {
		ids, types, mask, err := enc.encode(text)
		if err != nil {
			return nil, fmt.Errorf("tokenizer: text %d: %w", i, err)
		}
		if len(mask) != len(ids) {
			mask = ones(len(ids))
		}
		if len(types) != len(ids) {
			types = make([]int, len(ids))
		}
		if len(ids) > MaxSeqLen {
			last := len(ids) - 1
			ids = append(ids[:MaxSeqLen-1:MaxSeqLen-1], ids[last])
			types = append(types[:MaxSeqLen-1:MaxSeqLen-1], types[last])
			mask = append(mask[:MaxSeqLen-1:MaxSeqLen-1], mask[last])
		}
		seqs[i] = seq{ids: ids, types: types, mask: mask}
		if len(ids) > seqLen {
			seqLen = len(ids)
		}
	}
	if seqLen == 0 {
		seqLen = 1
	}

	n := int64(len(texts))
	b := &batch{
		inputIDs:      make([]int64, n*int64(seqLen)),
		attentionMask: make([]int64, n*int64(seqLen)),
		typeIDs:       make([]int64, n*int64(seqLen)),
		size:          n,
		seqLen:        int64(seqLen),
	}
	for i, s := range seqs {
		off := i * seqLen
		for j := range s.ids {
			b.inputIDs[off+j] = int64(s.ids[j])
			b.typeIDs[off+j] = int64(s.types[j])
			b.attentionMask[off+j] = int64(s.mask[j])
		}
	}
	return b, nil
}

func ones(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = 1
	}
	return s
}
