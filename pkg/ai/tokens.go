package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEncoding is the tokenizer used to budget prompts.
const TokenEncoding = "o200k_base"

var encoding = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding(TokenEncoding)
})

// CountTokens returns the number of tokens of text.
func CountTokens(text string) (int, error) {
	enc, err := encoding()
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// TruncateToTokens cuts text to at most limit tokens.
func TruncateToTokens(text string, limit int) (string, error) {
	enc, err := encoding()
	if err != nil {
		return "", err
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text, nil
	}
	if limit <= 0 {
		return "", nil
	}
	return enc.Decode(tokens[:limit]), nil
}
