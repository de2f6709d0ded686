package textchunk

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// OversizePolicy decides what happens to a sentence longer than the budget.
type OversizePolicy string

const (
	// PolicySplit breaks the sentence at whitespace, then at code points for
	// a single word longer than the budget.
	PolicySplit OversizePolicy = "split"
	// PolicyKeep emits the sentence as one chunk over the budget.
	PolicyKeep OversizePolicy = "keep"
	// PolicyReject fails the split with ErrOversizedSentence.
	PolicyReject OversizePolicy = "reject"
)

var (
	// ErrInvalidBudget is returned when maxChars is below one.
	ErrInvalidBudget = errors.New("chunk budget must be at least 1")
	// ErrOversizedSentence is returned under PolicyReject.
	ErrOversizedSentence = errors.New("sentence exceeds chunk budget")
)

// ParsePolicy maps a configuration value to a policy. Empty selects PolicySplit.
func ParsePolicy(value string) (OversizePolicy, error) {
	switch OversizePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicySplit:
		return PolicySplit, nil
	case PolicyKeep:
		return PolicyKeep, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("unknown oversize policy %q", value)
	}
}

// Chunk is a contiguous slice of the input text.
type Chunk struct {
	Index int
	Text  string
}

// Len returns the chunk length in code points.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Text)
}

// Join concatenates chunk texts in order.
func Join(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

// Split greedily packs sentences into chunks of at most maxChars code points.
// Empty text yields no chunks. Chunks are never empty.
func Split(text string, maxChars int, policy OversizePolicy) ([]Chunk, error) {
	if maxChars < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBudget, maxChars)
	}
	if policy == "" {
		policy = PolicySplit
	}
	if text == "" {
		return nil, nil
	}

	var tokens []string
	for i, sentence := range Sentences(text) {
		if utf8.RuneCountInString(sentence) <= maxChars {
			tokens = append(tokens, sentence)
			continue
		}
		switch policy {
		case PolicyKeep:
			tokens = append(tokens, sentence)
		case PolicyReject:
			return nil, fmt.Errorf("%w: sentence %d has %d characters, budget %d",
				ErrOversizedSentence, i, utf8.RuneCountInString(sentence), maxChars)
		case PolicySplit:
			tokens = append(tokens, hardSplit(sentence, maxChars)...)
		default:
			return nil, fmt.Errorf("unknown oversize policy %q", policy)
		}
	}

	var (
		chunks  []Chunk
		current strings.Builder
		length  int
	)
	seal := func() {
		if length == 0 {
			return
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: current.String()})
		current.Reset()
		length = 0
	}
	for _, token := range tokens {
		n := utf8.RuneCountInString(token)
		if length > 0 && length+n > maxChars {
			seal()
		}
		current.WriteString(token)
		length += n
	}
	seal()
	return chunks, nil
}

// Sentences tokenizes text into sentences. Each sentence keeps its terminator
// and the whitespace that follows it. Text after the last terminator forms the
// final sentence.
func Sentences(text string) []string {
	var sentences []string
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isTerminator(r) || i >= len(text) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(next) {
			continue
		}
		for i < len(text) {
			ws, wsSize := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(ws) {
				break
			}
			i += wsSize
		}
		sentences = append(sentences, text[start:i])
		start = i
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// hardSplit breaks an oversized sentence into pieces of at most maxChars code
// points, preferring whitespace boundaries.
func hardSplit(sentence string, maxChars int) []string {
	var pieces []string
	for _, word := range words(sentence) {
		if utf8.RuneCountInString(word) <= maxChars {
			pieces = append(pieces, word)
			continue
		}
		runes := []rune(word)
		for len(runes) > 0 {
			n := min(maxChars, len(runes))
			pieces = append(pieces, string(runes[:n]))
			runes = runes[n:]
		}
	}
	return pieces
}

// words splits s into words that each carry their trailing whitespace.
// Leading whitespace attaches to the first word.
func words(s string) []string {
	var out []string
	start := 0
	inSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if inSpace && !space && i > start {
			if strings.TrimSpace(s[start:i]) != "" {
				out = append(out, s[start:i])
				start = i
			}
		}
		inSpace = space
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
