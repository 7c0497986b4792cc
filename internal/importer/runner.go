package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/card-nexus/internal/metrics"
)

const DefaultProgressEvery = 100

var errNotArray = errors.New("input is not a JSON array of card objects")

// Runner drives Normalize -> Validate -> Load over a batch of records,
// strictly in source order.
type Runner struct {
	loader        *Loader
	log           *zap.Logger
	out           io.Writer
	progressEvery int
}

type RunnerOption func(*Runner)

// WithProgressEvery sets how often a "processed/total" line is printed.
// Values below 1 disable progress output.
func WithProgressEvery(n int) RunnerOption {
	return func(r *Runner) { r.progressEvery = n }
}

// WithOutput sets where progress lines go. Defaults to stdout.
func WithOutput(w io.Writer) RunnerOption {
	return func(r *Runner) { r.out = w }
}

func NewRunner(loader *Loader, log *zap.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		loader:        loader,
		log:           log,
		out:           os.Stdout,
		progressEvery: DefaultProgressEvery,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run imports each file in order. A file that cannot be read or parsed is
// reported and skipped; the remaining files still run. Cancelling ctx stops
// the run between records.
func (r *Runner) Run(ctx context.Context, paths []string) RunSummary {
	start := time.Now()
	var run RunSummary
	run.Total.Source = "all files"
	r.loader.Reset()

	for _, path := range paths {
		if ctx.Err() != nil {
			run.Cancelled = true
			break
		}

		report := r.RunFile(ctx, path)
		run.Files = append(run.Files, report)
		if report.Err != nil {
			run.SkippedFiles++
			continue
		}
		run.Total.Merge(report.Summary)
	}

	if ctx.Err() != nil {
		run.Cancelled = true
	}
	run.Elapsed = time.Since(start)
	run.Total.Elapsed = run.Elapsed
	metrics.ImportRunDuration.Observe(run.Elapsed.Seconds())
	return run
}

// RunFile imports one file holding a JSON array of card objects, or an
// object with the array under "data" as the card API returns it.
func (r *Runner) RunFile(ctx context.Context, path string) FileReport {
	report := FileReport{Path: path}

	records, err := readRecords(path)
	if err != nil {
		r.log.Warn("Skipping import file", zap.String("path", path), zap.Error(err))
		metrics.ImportFilesSkipped.Inc()
		report.Err = err
		return report
	}

	fmt.Fprintf(r.out, "Importing %d records from %s\n", len(records), path)
	report.Summary = r.runRecords(ctx, path, records)
	fmt.Fprintf(r.out, "Finished %s: %s\n", path, report.Summary)
	return report
}

// RunRecords imports an in-memory batch as its own run. source names the
// batch in the summary and in logs.
func (r *Runner) RunRecords(ctx context.Context, source string, records []json.RawMessage) Summary {
	r.loader.Reset()
	return r.runRecords(ctx, source, records)
}

func (r *Runner) runRecords(ctx context.Context, source string, records []json.RawMessage) Summary {
	start := time.Now()
	total := len(records)
	results := make([]Result, 0, total)

	for i, raw := range records {
		if ctx.Err() != nil {
			r.log.Warn("Import cancelled", zap.String("source", source), zap.Int("processed", i), zap.Int("total", total))
			break
		}

		res := r.processRecord(ctx, raw)
		res.Index = i
		results = append(results, res)

		if res.Err != nil {
			r.log.Warn("Record not imported",
				zap.String("source", source),
				zap.Int("index", i),
				zap.String("card", res.Label),
				zap.String("outcome", string(res.Outcome)),
				zap.Error(res.Err))
		}

		processed := i + 1
		if r.progressEvery > 0 && (processed%r.progressEvery == 0 || processed == total) {
			fmt.Fprintf(r.out, "  %d/%d\n", processed, total)
		}
	}

	return Summarize(source, results, time.Since(start))
}

func (r *Runner) processRecord(ctx context.Context, raw json.RawMessage) Result {
	n, err := Normalize(raw)
	if err != nil {
		metrics.ImportRecordsTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		return Result{Label: "<malformed>", Outcome: OutcomeFailed, Err: err}
	}
	return r.loader.Load(ctx, n)
}

func readRecords(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeRecords(data)
}

func decodeRecords(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errNotArray
	}

	switch data[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", errNotArray, err)
		}
		return records, nil
	case '{':
		var envelope struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Data == nil {
			return nil, errNotArray
		}
		return envelope.Data, nil
	default:
		return nil, errNotArray
	}
}
