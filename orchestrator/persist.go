package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type ReportBundle struct {
	RunID        string       `json:"run_id"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	LabeledFiles []string     `json:"labeled_files"`
	Sentences    int          `json:"sentences"`
	EvalSize     int          `json:"eval_size"`
	TrainSize    int          `json:"train_size"`
	Accuracy     float64      `json:"accuracy"`
	Labels       []string     `json:"labels"`
	Files        []FileResult `json:"files"`
}

func mkRunDir(reportsRoot string, at time.Time) (string, error) {
	dir := filepath.Join(reportsRoot, "run_"+at.Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func persist(reportsRoot string, res *Result) (string, error) {
	dir, err := mkRunDir(reportsRoot, res.Started)
	if err != nil {
		return "", err
	}
	bundle := ReportBundle{
		RunID:        uuid.NewString(),
		StartedAt:    res.Started,
		FinishedAt:   res.Finished,
		LabeledFiles: res.LabeledFiles,
		Sentences:    res.Trained.Sentences,
		EvalSize:     res.Trained.EvalSize,
		TrainSize:    res.Trained.TrainSize,
		Accuracy:     res.Trained.Accuracy,
		Labels:       res.Trained.Model.Labels(),
		Files:        res.Files,
	}
	path := filepath.Join(dir, "report.json")
	if err := writeJSON(path, bundle); err != nil {
		return "", err
	}
	return path, nil
}
