package gemini

import (
	"iter"

	"github.com/cashflow/steward"
	"google.golang.org/genai"
)

// NewStreamFromIter exposes the iterator adapter to external tests.
func NewStreamFromIter(seq iter.Seq2[*genai.GenerateContentResponse, error]) steward.TokenSource {
	return newStream(seq)
}

// Fill exposes the eager first pull performed by Stream.
func Fill(src steward.TokenSource) error {
	return src.(*stream).fill()
}
