package emoji

import (
	"sync"

	"github.com/forPelevin/gomoji"
)

var (
	refOnce sync.Once
	refSet  map[rune]struct{}
)

// referenceSet is every emoji that is a single code point, optionally
// followed by a presentation selector. Multi-code-point sequences (flags,
// skin tones, ZWJ families) contribute nothing on their own; their
// emoji components are still matched one by one.
func referenceSet() map[rune]struct{} {
	refOnce.Do(func() {
		set := make(map[rune]struct{}, 1400)
		for _, e := range gomoji.AllEmojis() {
			rs := []rune(e.Character)
			switch {
			case len(rs) == 1:
			case len(rs) == 2 && rs[1] == variationSelector:
			default:
				continue
			}
			if rs[0] < 0x80 {
				continue
			}
			set[rs[0]] = struct{}{}
		}
		refSet = set
	})
	return refSet
}

// Extractor isolates the emoji code points of a text.
type Extractor struct {
	set map[rune]struct{}
}

// NewExtractor builds the fixed reference set once; lexicon keys are always members.
func NewExtractor(lex Lexicon) *Extractor {
	ref := referenceSet()
	set := make(map[rune]struct{}, len(ref)+lex.Len())
	for r := range ref {
		set[r] = struct{}{}
	}
	for _, r := range lex.Runes() {
		set[r] = struct{}{}
	}
	return &Extractor{set: set}
}

func (x *Extractor) IsEmoji(r rune) bool {
	_, ok := x.set[r]
	return ok
}

// Extract returns the emoji of text left to right, repeats included. The
// result is never nil.
func (x *Extractor) Extract(text string) []string {
	out := []string{}
	for _, r := range text {
		if x.IsEmoji(r) {
			out = append(out, string(r))
		}
	}
	return out
}
