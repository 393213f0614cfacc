// Package classifier implements a decision-tree classifier over boolean
// bag-of-words features.
package classifier

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/maastricht-university/therapy-tagger/dataset"
	"github.com/maastricht-university/therapy-tagger/features"
)

var ErrNoExamples = errors.New("classifier: no training examples")

type Options struct {
	MaxDepth      int     // 0 means unlimited
	MinSupport    int     // nodes with fewer examples become leaves
	EntropyCutoff float64 // nodes at or below this entropy become leaves
}

func DefaultOptions() Options {
	return Options{MaxDepth: 100}
}

type node struct {
	label   string // majority label of the examples that reached this node
	feature string // empty on leaves
	present *node
	absent  *node
}

func (n *node) leaf() bool { return n.feature == "" }

// Model is a trained tree. It is never modified after Train returns.
type Model struct {
	root   *node
	labels []string
}

// Train grows a tree by splitting on the feature with the highest
// information gain until each node is pure or no feature separates it.
func Train(examples []dataset.Example, opts Options) (*Model, error) {
	if len(examples) == 0 {
		return nil, ErrNoExamples
	}
	t := &trainer{opts: opts}
	idx := make([]int, len(examples))
	for i := range idx {
		idx[i] = i
	}
	t.examples = examples
	root := t.grow(idx, 0)

	seen := map[string]struct{}{}
	var labels []string
	for _, ex := range examples {
		if _, ok := seen[ex.Tag]; !ok {
			seen[ex.Tag] = struct{}{}
			labels = append(labels, ex.Tag)
		}
	}
	sort.Strings(labels)
	return &Model{root: root, labels: labels}, nil
}

type trainer struct {
	opts     Options
	examples []dataset.Example
}

func (t *trainer) grow(idx []int, depth int) *node {
	counts := t.labelCounts(idx)
	n := &node{label: majority(counts)}

	if len(counts) <= 1 {
		return n
	}
	if t.opts.MaxDepth > 0 && depth >= t.opts.MaxDepth {
		return n
	}
	if len(idx) < t.opts.MinSupport {
		return n
	}
	if entropy(counts, len(idx)) <= t.opts.EntropyCutoff {
		return n
	}

	feature, ok := t.bestFeature(idx, counts)
	if !ok {
		return n
	}

	var with, without []int
	for _, i := range idx {
		if t.examples[i].Features[feature] {
			with = append(with, i)
		} else {
			without = append(without, i)
		}
	}
	n.feature = feature
	n.present = t.grow(with, depth+1)
	n.absent = t.grow(without, depth+1)
	return n
}

func (t *trainer) labelCounts(idx []int) map[string]int {
	counts := map[string]int{}
	for _, i := range idx {
		counts[t.examples[i].Tag]++
	}
	return counts
}

// bestFeature returns the feature with the highest information gain among
// those that split idx into two non-empty parts. Zero gain still counts.
func (t *trainer) bestFeature(idx []int, counts map[string]int) (string, bool) {
	// per feature, label counts among examples where it is present
	present := map[string]map[string]int{}
	for _, i := range idx {
		ex := t.examples[i]
		for f, v := range ex.Features {
			if !v {
				continue
			}
			c := present[f]
			if c == nil {
				c = map[string]int{}
				present[f] = c
			}
			c[ex.Tag]++
		}
	}

	names := make([]string, 0, len(present))
	for f := range present {
		names = append(names, f)
	}
	sort.Strings(names)

	total := len(idx)
	base := entropy(counts, total)
	best, bestGain := "", math.Inf(-1)
	for _, f := range names {
		pc := present[f]
		np := 0
		for _, c := range pc {
			np += c
		}
		if np == 0 || np == total {
			continue
		}
		ac := make(map[string]int, len(counts))
		for label, c := range counts {
			if rest := c - pc[label]; rest > 0 {
				ac[label] = rest
			}
		}
		na := total - np
		gain := base -
			float64(np)/float64(total)*entropy(pc, np) -
			float64(na)/float64(total)*entropy(ac, na)
		if gain > bestGain+1e-12 {
			best, bestGain = f, gain
		}
	}
	return best, best != ""
}

func entropy(counts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// majority picks the most frequent label; ties go to the smallest label.
func majority(counts map[string]int) string {
	best, bestN := "", -1
	for label, n := range counts {
		if n > bestN || (n == bestN && label < best) {
			best, bestN = label, n
		}
	}
	return best
}

// Predict walks the tree. A branch that saw no training examples falls back
// to the majority label of its parent.
func (m *Model) Predict(fs features.FeatureSet) string {
	n := m.root
	for !n.leaf() {
		next := n.absent
		if fs[n.feature] {
			next = n.present
		}
		if next == nil {
			break
		}
		n = next
	}
	return n.label
}

// Labels returns the sorted label vocabulary seen during training.
func (m *Model) Labels() []string {
	return append([]string(nil), m.labels...)
}

func (m *Model) Depth() int { return depth(m.root) }

func depth(n *node) int {
	if n == nil || n.leaf() {
		return 0
	}
	return 1 + max(depth(n.present), depth(n.absent))
}

func (m *Model) Leaves() int { return leaves(m.root) }

func leaves(n *node) int {
	if n == nil {
		return 0
	}
	if n.leaf() {
		return 1
	}
	return leaves(n.present) + leaves(n.absent)
}

// Pretty writes an indented dump of the tree, one decision per line.
func (m *Model) Pretty(w io.Writer) error {
	return pretty(w, m.root, 0)
}

func pretty(w io.Writer, n *node, level int) error {
	pad := strings.Repeat("  ", level)
	if n.leaf() {
		_, err := fmt.Fprintf(w, "%sreturn %q\n", pad, n.label)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%s=True?\n", pad, n.feature); err != nil {
		return err
	}
	if err := pretty(w, n.present, level+1); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%selse\n", pad); err != nil {
		return err
	}
	return pretty(w, n.absent, level+1)
}

// Accuracy is the fraction of examples whose predicted tag matches. An empty
// set scores 0.
func Accuracy(m *Model, examples []dataset.Example) float64 {
	if len(examples) == 0 {
		return 0
	}
	correct := 0
	for _, ex := range examples {
		if m.Predict(ex.Features) == ex.Tag {
			correct++
		}
	}
	return float64(correct) / float64(len(examples))
}

// Round4 rounds to four decimal places for reporting.
func Round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
