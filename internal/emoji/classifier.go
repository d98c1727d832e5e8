package emoji

import (
	"fmt"
	"strings"

	"review_insights/internal/domain"
)

// Policy decides how several mapped emoji collapse into one label.
type Policy string

const (
	// Majority compares positive and negative votes; ties and no votes are neutral.
	Majority Policy = "majority"
	// FirstMatch returns the label of the first emoji found in the lexicon.
	FirstMatch Policy = "first_match"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Majority:
		return Majority, nil
	case FirstMatch, "first":
		return FirstMatch, nil
	}
	return "", fmt.Errorf("%w: emoji policy %q", domain.ErrInvalidArgument, s)
}

type Classifier struct {
	lex    Lexicon
	policy Policy
}

func NewClassifier(lex Lexicon, policy Policy) *Classifier {
	if policy != FirstMatch {
		policy = Majority
	}
	return &Classifier{lex: lex, policy: policy}
}

func (c *Classifier) Policy() Policy { return c.policy }

func (c *Classifier) Lookup(e string) (domain.SentimentLabel, bool) { return c.lex.Lookup(e) }

// Classify is total: unmapped emoji are ignored and an empty sequence is neutral.
func (c *Classifier) Classify(emojis []string) domain.SentimentLabel {
	if c.policy == FirstMatch {
		for _, e := range emojis {
			if label, ok := c.lex.Lookup(e); ok {
				return label
			}
		}
		return domain.Neutral
	}

	var pos, neg int
	for _, e := range emojis {
		switch label, _ := c.lex.Lookup(e); label {
		case domain.Positive:
			pos++
		case domain.Negative:
			neg++
		}
	}
	switch {
	case pos > neg:
		return domain.Positive
	case neg > pos:
		return domain.Negative
	}
	return domain.Neutral
}
