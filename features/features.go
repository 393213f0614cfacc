// Package features turns a sentence into a bag-of-words feature set.
package features

import (
	"sort"

	"github.com/jdkato/prose/tokenize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FeatureSet records which features are present. Absent features are false.
type FeatureSet map[string]bool

// Names returns the present feature names in sorted order.
func (fs FeatureSet) Names() []string {
	names := make([]string, 0, len(fs))
	for k, v := range fs {
		if v {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Name is the feature key for a lowercased token.
func Name(token string) string { return "contains(" + token + ")" }

// Extract marks contains(<token>) for every distinct lowercased token.
func Extract(sentence string) FeatureSet {
	// a Caser keeps state, so each call gets its own
	lower := cases.Lower(language.Und)
	fs := FeatureSet{}
	for _, tok := range Tokenize(sentence) {
		fs[Name(lower.String(tok))] = true
	}
	return fs
}

// Tokenize splits a sentence the way the Penn Treebank does: sentences are
// found first, then each is cut into words with clitics (is + n't), split
// contractions (can + not) and directional quotes (`` and '') as tokens.
func Tokenize(s string) []string {
	return tokenize.TextToWords(s)
}
