package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/therapy-tagger/classifier"
	cfg "github.com/maastricht-university/therapy-tagger/config"
	"github.com/maastricht-university/therapy-tagger/dataset"
	"github.com/maastricht-university/therapy-tagger/features"
	"github.com/maastricht-university/therapy-tagger/sheets"
	"github.com/maastricht-university/therapy-tagger/transcript"
)

type Pipeline struct {
	cfg      *cfg.Root
	log      *logrus.Logger
	progress io.Writer
}

// NewPipeline wires the stages from c. Progress bars go to progress; pass
// nil to disable them.
func NewPipeline(c *cfg.Root, log *logrus.Logger, progress io.Writer) *Pipeline {
	if !c.Pipeline.Progress {
		progress = nil
	}
	return &Pipeline{cfg: c, log: log, progress: progress}
}

func (p *Pipeline) roles() transcript.Roles {
	r := transcript.Roles{Target: []rune(p.cfg.Roles.Target)[0]}
	for _, o := range p.cfg.Roles.Others {
		r.Others = append(r.Others, []rune(o)[0])
	}
	return r
}

func (p *Pipeline) labeledParser() *transcript.Parser {
	s := p.cfg.Labeled
	return transcript.NewParser(transcript.RoleMarkerSpec{
		MarkerOffset: s.MarkerOffset,
		TextOffset:   s.TextOffset,
		TagColumn:    s.TagColumn,
		Continuation: s.Continuation,
	}, p.roles())
}

func (p *Pipeline) unlabeledParser() *transcript.Parser {
	s := p.cfg.Unlabeled
	return transcript.NewParser(transcript.RoleMarkerSpec{
		MarkerOffset: s.MarkerOffset,
		TextOffset:   s.TextOffset,
		TagColumn:    transcript.NoTag,
		Continuation: s.Continuation,
	}, p.roles())
}

// Aggregate folds the target speaker's sentences from every labeled workbook
// into one corpus, in file name order.
func (p *Pipeline) Aggregate(ctx context.Context) (*dataset.Corpus, []string, error) {
	files, err := sheets.Discover(p.cfg.Paths.Labeled, p.cfg.Paths.Extension)
	if err != nil {
		return nil, nil, err
	}
	p.log.WithField("dir", p.cfg.Paths.Labeled).Infof("processing %d manually classified files", len(files))

	corpus := dataset.NewCorpus()
	parser := p.labeledParser()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rows, err := sheets.ReadRows(path)
		if err != nil {
			return nil, nil, err
		}
		utts := parser.Parse(rows)
		for _, u := range utts {
			corpus.Add(dataset.LabeledSentence{Text: u.Text, Tag: u.Tag})
		}
		p.log.WithField("file", path).Debugf("%d rows, %d target sentences", len(rows), len(utts))
	}
	return corpus, files, nil
}

// Train builds examples from corpus, holds out the head for evaluation and
// trains on the rest.
func (p *Pipeline) Train(corpus *dataset.Corpus) (*Trained, error) {
	p.log.Info("building feature sets")
	examples := corpus.Examples(features.Extract)
	eval, train, err := dataset.Split(examples, p.cfg.Split.EvalRatio)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"eval": len(eval), "train": len(train)}).Info("split examples")

	model, err := classifier.Train(train, classifier.Options{
		MaxDepth:      p.cfg.Tree.MaxDepth,
		MinSupport:    p.cfg.Tree.MinSupport,
		EntropyCutoff: p.cfg.Tree.EntropyCutoff,
	})
	if err != nil {
		return nil, fmt.Errorf("train on %d examples: %w", len(train), err)
	}

	acc := classifier.Round4(classifier.Accuracy(model, eval))
	p.log.WithFields(logrus.Fields{
		"accuracy": acc,
		"depth":    model.Depth(),
		"leaves":   model.Leaves(),
		"labels":   len(model.Labels()),
	}).Info("tested accuracy")

	return &Trained{
		Model:     model,
		Sentences: corpus.Len(),
		EvalSize:  len(eval),
		TrainSize: len(train),
		Accuracy:  acc,
	}, nil
}

// PredictFile tags every target-speaker row of the workbook at path and saves
// it in place. The output column is overwritten.
func (p *Pipeline) PredictFile(model *classifier.Model, path string) (int, error) {
	wb, err := sheets.Open(path)
	if err != nil {
		return 0, err
	}
	defer wb.Close()

	rows, err := wb.Rows()
	if err != nil {
		return 0, err
	}
	col := p.cfg.Unlabeled.TagColumn
	utts := p.unlabeledParser().Parse(rows)
	for _, u := range utts {
		tag := model.Predict(features.Extract(u.Text))
		if err := wb.SetCell(u.Row, col, tag); err != nil {
			return 0, err
		}
	}
	if err := wb.Save(); err != nil {
		return 0, err
	}
	return len(utts), nil
}

// PredictAll runs PredictFile over every unlabeled workbook.
func (p *Pipeline) PredictAll(ctx context.Context, model *classifier.Model) ([]FileResult, error) {
	files, err := sheets.Discover(p.cfg.Paths.Unlabeled, p.cfg.Paths.Extension)
	if err != nil {
		return nil, err
	}
	p.log.WithField("dir", p.cfg.Paths.Unlabeled).Infof("predicting tags for %d files", len(files))

	var bar *progressbar.ProgressBar
	if p.progress != nil {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(p.progress),
			progressbar.OptionSetDescription("predicting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	out := make([]FileResult, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		n, err := p.PredictFile(model, path)
		if err != nil {
			return out, err
		}
		p.log.WithField("file", path).Infof("tagged %d rows", n)
		out = append(out, FileResult{Path: path, Tagged: n})
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return out, nil
}

// Run aggregates, trains, then predicts. No prediction starts before training
// has finished.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{Started: time.Now()}

	corpus, labeled, err := p.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	res.LabeledFiles = labeled

	trained, err := p.Train(corpus)
	if err != nil {
		return nil, err
	}
	res.Trained = trained

	files, err := p.PredictAll(ctx, trained.Model)
	res.Files = files
	if err != nil {
		return res, err
	}
	res.Finished = time.Now()

	if p.cfg.Paths.Reports != "" {
		path, err := persist(p.cfg.Paths.Reports, res)
		if err != nil {
			return res, fmt.Errorf("write report: %w", err)
		}
		res.ReportPath = path
		p.log.WithField("path", path).Info("report written")
	}

	p.log.WithField("dir", p.cfg.Paths.Unlabeled).Info("complete, see the unlabeled folder for tagged files")
	p.log.Infof("run time: %.0f seconds", res.Finished.Sub(res.Started).Seconds())
	return res, nil
}
