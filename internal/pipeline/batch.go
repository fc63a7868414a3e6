package pipeline

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aduanas/internal"
)

// Processor fans declaration lines out over a bounded worker pool. A line
// that fails is logged and counted; it never stops the batch.
type Processor struct {
	pipeline *Pipeline
	workers  int
	log      *zap.Logger
	newRunID func() string
}

func NewProcessor(p *Pipeline, workers int, log *zap.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{pipeline: p, workers: workers, log: log, newRunID: uuid.NewString}
}

type Result struct {
	Summary internal.RunSummary
	Records []internal.ExtractedRecord
}

type lineOutcome struct {
	records []internal.ExtractedRecord
	err     error
	skipped bool
}

func (p *Processor) ProcessFile(ctx context.Context, path string) (Result, error) {
	lines, err := ReadLinesFile(path)
	if err != nil {
		return Result{}, err
	}
	res, err := p.ProcessLines(ctx, lines)
	res.Summary.InputPath = path
	return res, err
}

func (p *Processor) ProcessReader(ctx context.Context, r io.Reader) (Result, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return Result{}, err
	}
	return p.ProcessLines(ctx, lines)
}

// ProcessLines processes lines concurrently and merges the results in input
// order, so deduplication across lines keeps the earliest record.
func (p *Processor) ProcessLines(ctx context.Context, lines []string) (Result, error) {
	summary := internal.RunSummary{
		RunID:     p.newRunID(),
		Variant:   p.pipeline.Variant().Name,
		Lines:     len(lines),
		StartedAt: time.Now(),
	}
	log := p.log.With(zap.String("run_id", summary.RunID))

	outcomes := make([]lineOutcome, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, line := range lines {
		if strings.TrimSpace(line) == "" || (i == 0 && IsHeader(line)) {
			outcomes[i].skipped = true
			continue
		}
		if err := gctx.Err(); err != nil {
			break
		}
		i, line := i, line // per-iteration copies (go < 1.22 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.processOne(i+1, line)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{Summary: summary}, eris.Wrap(err, "pipeline: batch cancelled")
	}
	if err := ctx.Err(); err != nil {
		return Result{Summary: summary}, eris.Wrap(err, "pipeline: batch cancelled")
	}

	var all []internal.ExtractedRecord
	for i, out := range outcomes {
		switch {
		case out.skipped:
			summary.Blank++
		case out.err != nil:
			summary.Errored++
			log.Warn("line failed", zap.Int("line", i+1), zap.Error(out.err))
		default:
			summary.Processed++
			all = append(all, out.records...)
		}
	}

	records, dropped := DedupeRecords(all)
	summary.Records = len(records)
	summary.Duplicates = dropped
	summary.FinishedAt = time.Now()

	log.Info("batch processed",
		zap.String("variant", summary.Variant),
		zap.Int("lines", summary.Lines),
		zap.Int("processed", summary.Processed),
		zap.Int("errored", summary.Errored),
		zap.Int("records", summary.Records),
		zap.Int("duplicates", summary.Duplicates),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return Result{Summary: summary, Records: records}, nil
}

func (p *Processor) processOne(lineNo int, line string) (out lineOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = lineOutcome{err: eris.Errorf("pipeline: panic on line %d: %v", lineNo, r)}
		}
	}()
	decl, err := ParseLine(lineNo, line)
	if err != nil {
		return lineOutcome{err: err}
	}
	return lineOutcome{records: p.pipeline.ProcessLine(decl)}
}
