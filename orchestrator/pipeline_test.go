package orchestrator

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/maastricht-university/therapy-tagger/config"
	"github.com/maastricht-university/therapy-tagger/sheets"
)

// labeledLine puts the marker at offset 14 and the text at 17.
func labeledLine(marker, text string) string {
	return "00:00:01.000 [" + marker + "] " + text
}

// unlabeledLine puts the marker at offset 11 and the text at 14.
func unlabeledLine(marker, text string) string {
	return "00:01.000 [" + marker + "] " + text
}

func tagged(cell, tag string) []string {
	return []string{cell, "", "", "", "", "", tag}
}

type fixture struct {
	cfg       *cfg.Root
	labeled   string
	unlabeled string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	c := cfg.Default()
	c.Paths.Labeled = filepath.Join(root, "Manually_Classified")
	c.Paths.Unlabeled = filepath.Join(root, "Unclassified")
	c.Pipeline.Progress = false
	require.NoError(t, os.MkdirAll(c.Paths.Labeled, 0o755))
	require.NoError(t, os.MkdirAll(c.Paths.Unlabeled, 0o755))
	return &fixture{cfg: c, labeled: c.Paths.Labeled, unlabeled: c.Paths.Unlabeled}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (f *fixture) pipeline() *Pipeline {
	return NewPipeline(f.cfg, quietLogger(), nil)
}

func TestAggregateEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, sheets.Write(filepath.Join(f.labeled, "s1.xlsx"), [][]string{
		tagged(labeledLine("T", "great, isn't it"), "validation"),
		tagged(labeledLine("M", "ok"), "reflection"),
		tagged("ack", "reflection"),
	}))

	corpus, files, err := f.pipeline().Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, 1, corpus.Len())
	tag, ok := corpus.Tag("great, isn't it")
	assert.True(t, ok)
	assert.Equal(t, "validation", tag)
	_, ok = corpus.Tag("ack")
	assert.False(t, ok)
}

func TestAggregateLaterFileOverrides(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, sheets.Write(filepath.Join(f.labeled, "a.xlsx"), [][]string{
		tagged(labeledLine("T", "how are you"), "question"),
		tagged("and how was the week", "question"),
	}))
	require.NoError(t, sheets.Write(filepath.Join(f.labeled, "b.xlsx"), [][]string{
		tagged(labeledLine("T", "how are you"), "greeting"),
	}))

	corpus, _, err := f.pipeline().Aggregate(context.Background())
	require.NoError(t, err)
	sents := corpus.Sentences()
	require.Len(t, sents, 2)
	assert.Equal(t, "how are you", sents[0].Text)
	assert.Equal(t, "greeting", sents[0].Tag)
	assert.Equal(t, "and how was the week", sents[1].Text)
}

func TestAggregateMissingDir(t *testing.T) {
	f := newFixture(t)
	f.cfg.Paths.Labeled = filepath.Join(f.labeled, "missing")
	_, _, err := f.pipeline().Aggregate(context.Background())
	assert.Error(t, err)
}

func TestAggregateBrokenWorkbook(t *testing.T) {
	f := newFixture(t)
	bad := filepath.Join(f.labeled, "bad.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))
	_, _, err := f.pipeline().Aggregate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.xlsx")
}

func trainingRows() [][]string {
	return [][]string{
		tagged(labeledLine("T", "hello"), "greeting"),
		tagged(labeledLine("T", "hi there"), "greeting"),
		tagged(labeledLine("T", "how are you feeling"), "question"),
		tagged(labeledLine("T", "what happened then"), "question"),
		tagged(labeledLine("T", "that sounds hard"), "validation"),
		tagged(labeledLine("T", "that makes sense"), "validation"),
		tagged(labeledLine("M", "i am tired"), "x"),
		tagged(labeledLine("T", "hello again"), "greeting"),
		tagged(labeledLine("T", "how was school"), "question"),
		tagged(labeledLine("T", "that must be hard"), "validation"),
	}
}

func TestTrain(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, sheets.Write(filepath.Join(f.labeled, "s.xlsx"), trainingRows()))

	p := f.pipeline()
	corpus, _, err := p.Aggregate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 9, corpus.Len())

	tr, err := p.Train(corpus)
	require.NoError(t, err)
	assert.Equal(t, 9, tr.Sentences)
	assert.Equal(t, 5, tr.EvalSize)
	assert.Equal(t, 4, tr.TrainSize)
	assert.GreaterOrEqual(t, tr.Accuracy, 0.0)
	assert.LessOrEqual(t, tr.Accuracy, 1.0)
}

func TestTrainEmptyCorpus(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()
	corpus, _, err := p.Aggregate(context.Background())
	require.NoError(t, err)
	_, err = p.Train(corpus)
	assert.Error(t, err)
}

func unlabeledRows() [][]string {
	return [][]string{
		{unlabeledLine("T", "hello"), "keep", "", "", "", "", "stale"},
		{unlabeledLine("M", "i hate school"), "keep", "", "", "", "", "mother"},
		{"a line that continues the mother", "", "", "", "", "", "untouched"},
		{unlabeledLine("T", "that sounds hard")},
		{"and how was school today"},
		{"short"},
	}
}

func trainedPipeline(t *testing.T) (*fixture, *Pipeline, *Trained) {
	t.Helper()
	f := newFixture(t)
	// everything goes to training
	f.cfg.Split.EvalRatio = 0
	require.NoError(t, sheets.Write(filepath.Join(f.labeled, "s.xlsx"), trainingRows()))
	p := f.pipeline()
	corpus, _, err := p.Aggregate(context.Background())
	require.NoError(t, err)
	tr, err := p.Train(corpus)
	require.NoError(t, err)
	return f, p, tr
}

func TestPredictFile(t *testing.T) {
	f, p, tr := trainedPipeline(t)
	path := filepath.Join(f.unlabeled, "u.xlsx")
	require.NoError(t, sheets.Write(path, unlabeledRows()))

	n, err := p.PredictFile(tr.Model, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := sheets.ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, "greeting", rows[0][6])
	assert.Equal(t, "keep", rows[0][1])
	assert.Equal(t, "mother", rows[1][6])
	assert.Equal(t, "untouched", rows[2][6])
	assert.Equal(t, "validation", rows[3][6])
	require.Len(t, rows[4], 7)
	assert.Contains(t, tr.Model.Labels(), rows[4][6])
	assert.Equal(t, []string{"short"}, rows[5])
}

func outputColumn(t *testing.T, path string) []string {
	t.Helper()
	rows, err := sheets.ReadRows(path)
	require.NoError(t, err)
	var col []string
	for _, r := range rows {
		if len(r) > 6 {
			col = append(col, r[6])
		} else {
			col = append(col, "")
		}
	}
	return col
}

func TestPredictFileDeterministic(t *testing.T) {
	f, p, tr := trainedPipeline(t)
	path := filepath.Join(f.unlabeled, "u.xlsx")
	require.NoError(t, sheets.Write(path, unlabeledRows()))

	_, err := p.PredictFile(tr.Model, path)
	require.NoError(t, err)
	first := outputColumn(t, path)

	_, err = p.PredictFile(tr.Model, path)
	require.NoError(t, err)
	assert.Equal(t, first, outputColumn(t, path))
}

func TestRun(t *testing.T) {
	f := newFixture(t)
	f.cfg.Paths.Reports = filepath.Join(filepath.Dir(f.labeled), "reports")
	require.NoError(t, sheets.Write(filepath.Join(f.labeled, "s.xlsx"), trainingRows()))
	require.NoError(t, sheets.Write(filepath.Join(f.unlabeled, "u1.xlsx"), unlabeledRows()))
	require.NoError(t, sheets.Write(filepath.Join(f.unlabeled, "u2.xlsx"), unlabeledRows()[:1]))

	res, err := NewPipeline(f.cfg, quietLogger(), io.Discard).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, 3, res.Files[0].Tagged)
	assert.Equal(t, 1, res.Files[1].Tagged)
	assert.False(t, res.Finished.Before(res.Started))

	require.NotEmpty(t, res.ReportPath)
	raw, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	var bundle ReportBundle
	require.NoError(t, json.Unmarshal(raw, &bundle))
	assert.NotEmpty(t, bundle.RunID)
	assert.Equal(t, 9, bundle.Sentences)
	assert.Equal(t, res.Trained.Accuracy, bundle.Accuracy)
	assert.Len(t, bundle.Files, 2)
}

func TestRunCanceled(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, sheets.Write(filepath.Join(f.labeled, "s.xlsx"), trainingRows()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.pipeline().Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
