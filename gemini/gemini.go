// Package gemini implements [steward.Provider] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK. Streaming uses the SDK's
// iter.Seq2 iterator, wrapped into the pull-based [steward.TokenSource]
// interface. Thought parts arrive as out-of-band increments.
package gemini

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 8192
)
