package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"steamscraper/internal/journal"
	"steamscraper/internal/logger"
	"steamscraper/internal/models"
	"steamscraper/internal/store"
	"steamscraper/pkg/checksum"
)

// Recorder receives one journal entry per processed file.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Failure names a file that could not be migrated.
type Failure struct {
	Name string
	Err  error
}

// Summary is the outcome of a batch. Counts do not depend on processing order.
type Summary struct {
	From      models.SchemaVersion
	To        models.SchemaVersion
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Counters  Counters
	StatNames []string
	Failures  []Failure
}

// Processed returns how many files have an outcome.
func (s *Summary) Processed() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// ProgressFunc is called every ProgressEvery processed files with a copy of the summary so far.
type ProgressFunc func(processed int, summary Summary)

// Options configures an Orchestrator. Zero values select the defaults.
type Options struct {
	Workers       int
	ProgressEvery int
	VerifyHTML    bool
	RunID         string
	Recorder      Recorder
	OnProgress    ProgressFunc
	Logger        *logger.Logger
}

// Orchestrator migrates every record of an input archive into an output archive.
type Orchestrator struct {
	in    *store.FileStore
	out   *store.FileStore
	steps []Step
	from  models.SchemaVersion
	to    models.SchemaVersion
	opts  Options
	log   *logger.Logger

	mu      sync.Mutex
	summary Summary
}

// NewOrchestrator creates an orchestrator running steps, oldest first.
func NewOrchestrator(in, out *store.FileStore, steps []Step, opts Options) (*Orchestrator, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrNoPath)
	}

	for i := 1; i < len(steps); i++ {
		if steps[i].From() != steps[i-1].To() {
			return nil, fmt.Errorf("%w: %s does not follow %s", ErrNoPath, steps[i].From(), steps[i-1].To())
		}
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}

	if opts.ProgressEvery < 1 {
		opts.ProgressEvery = 50
	}

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	if opts.RunID != "" {
		log = log.With("run_id", opts.RunID)
	}

	return &Orchestrator{
		in:    in,
		out:   out,
		steps: steps,
		from:  steps[0].From(),
		to:    steps[len(steps)-1].To(),
		opts:  opts,
		log:   log,
	}, nil
}

// Run migrates every record file in lexical order. A file whose output
// already exists is skipped. Per-file failures are counted and never stop
// the batch; only listing the input or cancellation returns an error.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	names, err := o.in.ListRecords()
	if err != nil {
		return Summary{}, err
	}

	o.summary = Summary{
		From:      o.from,
		To:        o.to,
		Total:     len(names),
		Counters:  Counters{},
		StatNames: StatNames(o.steps),
	}

	o.log.Info("migration started",
		"from", o.from, "to", o.to,
		"files", len(names), "workers", o.opts.Workers,
		"input", o.in.Dir(), "output", o.out.Dir(),
	)

	jobs := make(chan string)

	var wg sync.WaitGroup

	for range o.opts.Workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for name := range jobs {
				o.handle(ctx, name)
			}
		}()
	}

feed:
	for _, name := range names {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- name:
		}
	}

	close(jobs)
	wg.Wait()

	summary := o.snapshot()
	slices.SortFunc(summary.Failures, func(a, b Failure) int {
		return strings.Compare(a.Name, b.Name)
	})

	return summary, ctx.Err()
}

func (o *Orchestrator) handle(ctx context.Context, name string) {
	outcome, counters, err := o.migrateFile(name)

	o.mu.Lock()

	switch outcome {
	case journal.OutcomeSkipped:
		o.summary.Skipped++
	case journal.OutcomeSucceeded:
		o.summary.Succeeded++
		o.summary.Counters.Add(counters)
	default:
		o.summary.Failed++
		o.summary.Failures = append(o.summary.Failures, Failure{Name: name, Err: err})
	}

	processed := o.summary.Processed()

	var progress *Summary

	if processed%o.opts.ProgressEvery == 0 && o.opts.OnProgress != nil {
		snap := o.copySummary()
		progress = &snap
	}

	o.mu.Unlock()

	if err != nil {
		o.log.Error("migration failed", "file", name, "error", err)
	}

	if progress != nil {
		o.opts.OnProgress(processed, *progress)
	}

	o.record(ctx, name, outcome, err)
}

// migrateFile returns the outcome of one file and, on success, its statistics.
func (o *Orchestrator) migrateFile(name string) (string, Counters, error) {
	exists, err := o.out.HasFile(name)
	if err != nil {
		return journal.OutcomeFailed, nil, err
	}

	if exists {
		return journal.OutcomeSkipped, nil, nil
	}

	record, err := o.in.LoadFile(name)
	if err != nil {
		return journal.OutcomeFailed, nil, err
	}

	if record.Version != o.from {
		return journal.OutcomeFailed, nil, fmt.Errorf("%w: %s is %q, want %q", ErrVersionMismatch, name, record.Version, o.from)
	}

	expected := checksum.CalculateHash(record.HTML)
	counters := Counters{}

	for _, step := range o.steps {
		c, err := step.Apply(record)
		if err != nil {
			return journal.OutcomeFailed, nil, fmt.Errorf("%s → %s: %w", step.From(), step.To(), err)
		}

		counters.Add(c)
	}

	if err := o.out.SaveRecordFile(name, record); err != nil {
		return journal.OutcomeFailed, nil, err
	}

	if o.opts.VerifyHTML {
		path := filepath.Join(o.out.Dir(), name)
		if err := checksum.VerifyFile(path, expected); err != nil {
			// a bad output would otherwise be skipped on every later run
			if rmErr := os.Remove(path); rmErr != nil {
				err = errors.Join(err, rmErr)
			}

			return journal.OutcomeFailed, nil, err
		}
	}

	return journal.OutcomeSucceeded, counters, nil
}

func (o *Orchestrator) record(ctx context.Context, name, outcome string, cause error) {
	if o.opts.Recorder == nil {
		return
	}

	entry := journal.Entry{RunID: o.opts.RunID, Outcome: outcome}

	if _, err := fmt.Sscanf(name, "%d.json", &entry.AppID); err != nil {
		entry.AppID = -1
	}

	if cause != nil {
		entry.Detail = cause.Error()
	}

	if err := o.opts.Recorder.Record(ctx, entry); err != nil {
		o.log.Warn("journal write failed", "file", name, "error", err)
	}
}

func (o *Orchestrator) snapshot() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.copySummary()
}

// copySummary must be called with mu held.
func (o *Orchestrator) copySummary() Summary {
	snap := o.summary
	snap.Counters = Counters{}
	snap.Counters.Add(o.summary.Counters)
	snap.Failures = append([]Failure(nil), o.summary.Failures...)

	return snap
}
