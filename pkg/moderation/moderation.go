// Package moderation provides an optional blocked-word censor for direct
// messages. Matching is case-insensitive and ignores spacing and punctuation
// inside a word, so "b a d" still matches "bad"; the replacement preserves the
// original character positions.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// DefaultMask is the rune used to overwrite censored characters.
const DefaultMask = '*'

// Censor matches a fixed dictionary of blocked words against message text.
// A nil Censor (or one built from an empty dictionary) passes text through
// unchanged.
type Censor struct {
	machine *goahocorasick.Machine
	mask    rune
}

// New builds a Censor from a dictionary of blocked words. An empty dictionary
// returns a pass-through Censor.
func New(words []string, mask rune) (*Censor, error) {
	if mask == 0 {
		mask = DefaultMask
	}
	c := &Censor{mask: mask}
	if len(words) == 0 {
		return c, nil
	}

	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if norm := normalize([]rune(w)); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}
	if len(patterns) == 0 {
		return c, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	c.machine = m
	return c, nil
}

// Apply censors blocked words in text. Returns the (possibly modified) text
// and whether anything was censored.
func (c *Censor) Apply(text string) (string, bool) {
	if c == nil || c.machine == nil || text == "" {
		return text, false
	}

	orig := []rune(text)
	norm := make([]rune, 0, len(orig))
	origIdx := make([]int, 0, len(orig)) // normalized position -> original position
	for i, r := range orig {
		if skippable(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	if len(norm) == 0 {
		return text, false
	}

	hits := c.machine.MultiPatternSearch(norm, false)
	if len(hits) == 0 {
		return text, false
	}

	for _, hit := range hits {
		start := hit.Pos
		end := start + len(hit.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		// Mask every original rune covered by the match, including any
		// punctuation or spacing inside it.
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			orig[i] = c.mask
		}
	}
	return string(orig), true
}

func normalize(in []rune) []rune {
	out := make([]rune, 0, len(in))
	for _, r := range in {
		if skippable(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}

func skippable(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}
