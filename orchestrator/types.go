package orchestrator

import (
	"time"

	"github.com/maastricht-university/therapy-tagger/classifier"
)

// Trained is what the training phase hands to prediction.
type Trained struct {
	Model     *classifier.Model
	Sentences int // distinct labeled sentences
	EvalSize  int
	TrainSize int
	Accuracy  float64 // on the eval part, rounded to 4 decimals
}

type FileResult struct {
	Path   string `json:"path"`
	Tagged int    `json:"tagged_rows"`
}

type Result struct {
	Started      time.Time
	Finished     time.Time
	LabeledFiles []string
	Trained      *Trained
	Files        []FileResult
	ReportPath   string
}
