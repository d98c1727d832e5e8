package emoji

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"review_insights/internal/domain"
)

const variationSelector = '\uFE0F'

// Lexicon maps single emoji code points to a sentiment label. It is immutable
// once built and safe to share between goroutines.
type Lexicon struct {
	m map[rune]domain.SentimentLabel
}

var defaultEntries = map[domain.SentimentLabel]string{
	domain.Positive: "😊😍❤👍👌😁😜🤗😃😄🔥🥰✨🤩",
	domain.Neutral:  "😂😐🥺🤔🙏",
	domain.Negative: "😭😢😡😩😱👎🥴💔💀😠😞🤬😣",
}

func DefaultLexicon() Lexicon {
	m := make(map[rune]domain.SentimentLabel)
	for label, runes := range defaultEntries {
		for _, r := range runes {
			m[r] = label
		}
	}
	return Lexicon{m: m}
}

// NewLexicon builds a lexicon from emoji strings. Presentation selectors are
// ignored, so "❤️" and "❤" are the same key.
func NewLexicon(entries map[string]domain.SentimentLabel) (Lexicon, error) {
	m := make(map[rune]domain.SentimentLabel, len(entries))
	for e, label := range entries {
		r, ok := keyRune(e)
		if !ok {
			return Lexicon{}, fmt.Errorf("%w: lexicon key %q is not a single emoji", domain.ErrInvalidArgument, e)
		}
		if !label.Valid() {
			return Lexicon{}, fmt.Errorf("%w: lexicon label %q for %q", domain.ErrInvalidArgument, label, e)
		}
		if prev, dup := m[r]; dup && prev != label {
			return Lexicon{}, fmt.Errorf("%w: %q mapped to both %s and %s", domain.ErrInvalidArgument, e, prev, label)
		}
		m[r] = label
	}
	return Lexicon{m: m}, nil
}

type lexiconFile struct {
	Positive []string `yaml:"positive"`
	Neutral  []string `yaml:"neutral"`
	Negative []string `yaml:"negative"`
}

// LoadLexicon reads a YAML file with positive/neutral/negative lists.
func LoadLexicon(path string) (Lexicon, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read emoji lexicon: %w", err)
	}
	var f lexiconFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Lexicon{}, fmt.Errorf("parse emoji lexicon: %w", err)
	}
	entries := make(map[string]domain.SentimentLabel)
	add := func(list []string, label domain.SentimentLabel) error {
		for _, e := range list {
			if prev, dup := entries[e]; dup && prev != label {
				return fmt.Errorf("%w: %q listed as both %s and %s", domain.ErrInvalidArgument, e, prev, label)
			}
			entries[e] = label
		}
		return nil
	}
	if err := add(f.Positive, domain.Positive); err != nil {
		return Lexicon{}, err
	}
	if err := add(f.Neutral, domain.Neutral); err != nil {
		return Lexicon{}, err
	}
	if err := add(f.Negative, domain.Negative); err != nil {
		return Lexicon{}, err
	}
	if len(entries) == 0 {
		return Lexicon{}, fmt.Errorf("%w: emoji lexicon %s has no entries", domain.ErrEmptyDataset, path)
	}
	return NewLexicon(entries)
}

func (l Lexicon) Lookup(e string) (domain.SentimentLabel, bool) {
	r, ok := keyRune(e)
	if !ok {
		return "", false
	}
	label, ok := l.m[r]
	return label, ok
}

func (l Lexicon) Len() int { return len(l.m) }

// Runes returns the lexicon keys in code point order.
func (l Lexicon) Runes() []rune {
	out := make([]rune, 0, len(l.m))
	for r := range l.m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func keyRune(e string) (rune, bool) {
	rs := []rune(strings.TrimSpace(strings.ReplaceAll(e, string(variationSelector), "")))
	if len(rs) != 1 {
		return 0, false
	}
	return rs[0], true
}
