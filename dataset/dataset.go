// Package dataset aggregates labeled sentences and partitions them for
// training and evaluation.
package dataset

import (
	"fmt"
	"math"

	"github.com/maastricht-university/therapy-tagger/features"
)

type LabeledSentence struct {
	Text string
	Tag  string
}

type Example struct {
	Features features.FeatureSet
	Tag      string
}

// Corpus maps sentence text to its tag. A sentence seen again keeps its
// original position but takes the newer tag.
type Corpus struct {
	order []string
	tags  map[string]string
}

func NewCorpus() *Corpus {
	return &Corpus{tags: map[string]string{}}
}

func (c *Corpus) Add(s LabeledSentence) {
	if _, ok := c.tags[s.Text]; !ok {
		c.order = append(c.order, s.Text)
	}
	c.tags[s.Text] = s.Tag
}

func (c *Corpus) Len() int { return len(c.order) }

func (c *Corpus) Tag(text string) (string, bool) {
	tag, ok := c.tags[text]
	return tag, ok
}

// Sentences returns the aggregated sentences in first-insertion order.
func (c *Corpus) Sentences() []LabeledSentence {
	out := make([]LabeledSentence, 0, len(c.order))
	for _, text := range c.order {
		out = append(out, LabeledSentence{Text: text, Tag: c.tags[text]})
	}
	return out
}

// Examples converts every sentence with extract, preserving corpus order.
func (c *Corpus) Examples(extract func(string) features.FeatureSet) []Example {
	out := make([]Example, 0, len(c.order))
	for _, text := range c.order {
		out = append(out, Example{Features: extract(text), Tag: c.tags[text]})
	}
	return out
}

// Split cuts examples at floor(ratio*len). The head goes to eval and the tail
// to train.
func Split(examples []Example, ratio float64) (eval, train []Example, err error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return nil, nil, fmt.Errorf("split ratio %v outside [0,1]", ratio)
	}
	n := int(float64(len(examples)) * ratio)
	return examples[:n], examples[n:], nil
}
