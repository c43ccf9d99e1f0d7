// Gectrain fine-tunes the grammar-correction model on a labeled CSV dataset
// and persists the result. It is a one-shot, non-interactive command: any
// failure is fatal and exits non-zero.
//
// Usage:
//
//	gectrain --train-csv data/gec.csv [--output-dir t5-gec] [--epochs 3]
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/nadzzz/lingopipe/internal/seq2seq"
	"github.com/nadzzz/lingopipe/internal/trainer"
)

func main() {
	trainCSV := flag.String("train-csv", "", "path to CSV with input_text/target_text columns (required)")
	outputDir := flag.String("output-dir", "t5-gec", "directory the trained model is saved to")
	epochs := flag.Int("epochs", 3, "number of training epochs")
	batchSize := flag.Int("batch-size", trainer.DefaultBatchSize, "per-device training batch size")
	baseModel := flag.String("base-model", "t5-small", "base seq2seq model to fine-tune")
	endpoint := flag.String("endpoint", "http://localhost:8089", "seq2seq model server endpoint")
	timeout := flag.Duration("timeout", 4*time.Hour, "overall training timeout")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if *trainCSV == "" {
		slog.Error("--train-csv is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := seq2seq.New(*endpoint, *timeout)
	result, err := trainer.Run(ctx, client, trainer.Job{
		CSVPath:   *trainCSV,
		BaseModel: *baseModel,
		OutputDir: *outputDir,
		Epochs:    *epochs,
		BatchSize: *batchSize,
	})
	if err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}

	slog.Info("model saved", "output_dir", result.OutputDir)
}
