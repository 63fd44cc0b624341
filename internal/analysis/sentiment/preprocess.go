package sentiment

import (
	"strings"
	"unicode"
)

// stopWords is a compact English stop-word list. Words that carry market
// polarity on their own are deliberately absent.
var stopWords = toSet(`a about above after again against all almost also although always am among an and
another any anyone anything are around as at be became because become been before being below
between both but by can could did do does doing done during each either else enough even ever
every few for from further get gets had has have having he her here hers herself him himself his
how however i if in into is it its itself just least less made make many may me might more most
much must my myself neither no nor not now of often on once one only or other others our ours
ourselves out over own per perhaps please put quite rather really same say says see seem seemed
several she should show since so some something still such than that the their theirs them
themselves then there these they this those though through thus to together too toward under
until upon us very via was we well were what whatever when where whether which while who whom
whose why will with within without would yet you your yours yourself yourselves`)

func toSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// Preprocess lowercases text, splits it into alphabetic tokens and drops
// stop words. Digits and punctuation act as separators.
func Preprocess(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
