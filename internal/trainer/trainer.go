// Package trainer builds and submits grammar-correction fine-tuning jobs.
//
// Training data is a CSV with input_text and target_text columns. Every
// input gets the same instruction prefix the corrector uses at inference
// time — a model fine-tuned without it would never see the prompt shape it
// is served with.
package trainer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/nadzzz/lingopipe/internal/correct"
	"github.com/nadzzz/lingopipe/internal/seq2seq"
)

// DefaultBatchSize is the fixed per-device training batch size.
const DefaultBatchSize = 8

var (
	// ErrMissingColumns indicates the CSV lacks input_text or target_text.
	ErrMissingColumns = errors.New("csv must have input_text and target_text columns")

	// ErrNoExamples indicates the CSV had a header but no data rows.
	ErrNoExamples = errors.New("csv contains no training examples")
)

// LoadCSV reads labeled examples from the CSV at path. The header row must
// contain input_text and target_text columns (any order, extra columns
// ignored). Rows with an empty input are skipped.
func LoadCSV(path string) ([]seq2seq.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening training csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoExamples
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	inputCol, targetCol := -1, -1
	for i, name := range header {
		switch name {
		case "input_text":
			inputCol = i
		case "target_text":
			targetCol = i
		}
	}
	if inputCol < 0 || targetCol < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrMissingColumns, header)
	}

	var examples []seq2seq.Example
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}
		if record[inputCol] == "" {
			continue
		}
		examples = append(examples, seq2seq.Example{
			InputText:  record[inputCol],
			TargetText: record[targetCol],
		})
	}

	if len(examples) == 0 {
		return nil, ErrNoExamples
	}
	return examples, nil
}

// Finetuner is the slice of the seq2seq client the trainer needs.
type Finetuner interface {
	Finetune(ctx context.Context, req seq2seq.FinetuneRequest) (*seq2seq.FinetuneResult, error)
}

// Job describes one training run.
type Job struct {
	CSVPath   string
	BaseModel string
	OutputDir string
	Epochs    int
	BatchSize int
}

// Run loads the dataset, prefixes every input with the correction
// instruction, and submits a blocking fine-tune job. It returns once the
// model and tokenizer are persisted to the job's output directory.
func Run(ctx context.Context, client Finetuner, job Job) (*seq2seq.FinetuneResult, error) {
	examples, err := LoadCSV(job.CSVPath)
	if err != nil {
		return nil, err
	}

	for i := range examples {
		examples[i].InputText = correct.Prefix + examples[i].InputText
	}

	batchSize := job.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	slog.Info("starting fine-tune",
		"base_model", job.BaseModel,
		"examples", len(examples),
		"epochs", job.Epochs,
		"batch_size", batchSize,
		"output_dir", job.OutputDir)

	start := time.Now()
	result, err := client.Finetune(ctx, seq2seq.FinetuneRequest{
		BaseModel: job.BaseModel,
		Examples:  examples,
		Epochs:    job.Epochs,
		BatchSize: batchSize,
		MaxLength: correct.DefaultMaxLength,
		OutputDir: job.OutputDir,
	})
	if err != nil {
		return nil, fmt.Errorf("fine-tune failed: %w", err)
	}

	slog.Info("fine-tune complete",
		"output_dir", result.OutputDir,
		"steps", result.Steps,
		"duration", time.Since(start))
	return result, nil
}
