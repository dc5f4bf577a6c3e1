package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Censor masks forbidden words in message content while preserving the
// original spacing and punctuation. Matching runs over a normalized view of
// the text (lowercased, leet speak simplified, noise stripped) so obfuscated
// spellings are still caught.
type Censor struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewCensor builds the Aho-Corasick automaton from a normalized version of
// the word list. An empty list yields a nil Censor, which passes content
// through untouched.
func NewCensor(words []string, replacement rune) (*Censor, error) {
	if len(words) == 0 {
		return nil, nil
	}
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalizeRunes([]rune(word))
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Censor{matcher: machine, replacement: replacement}, nil
}

// Apply replaces every matched span with the replacement rune. The span is
// mapped back to the original rune positions, so "B.4.d" masks all five
// characters of the obfuscated word.
func (c *Censor) Apply(original string) string {
	if c == nil {
		return original
	}
	mapping := normalize(original)
	if len(mapping.normalized) == 0 {
		return original
	}

	spans := c.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original
	}

	origRunes := []rune(original)
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}
		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = c.replacement
		}
	}
	return string(origRunes)
}

// normalize lowers and simplifies the input while remembering where each
// searchable rune came from.
func normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters ignored during the matching phase.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
