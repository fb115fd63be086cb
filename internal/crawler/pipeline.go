// Package crawler fetches store pages and turns them into persisted records.
package crawler

import (
	"context"
	"errors"
	"fmt"

	"steamscraper/internal/crawler/parsers"
	"steamscraper/internal/journal"
	"steamscraper/internal/logger"
	"steamscraper/internal/models"
	"steamscraper/internal/store"
	"steamscraper/internal/validator"
)

// Stats counts crawl outcomes. Every requested id lands in exactly one of
// Succeeded, Skipped, Trash or Failed.
type Stats struct {
	Requested int
	Succeeded int
	Skipped   int
	Trash     int
	Failed    int
}

// Processed returns how many ids have an outcome.
func (s Stats) Processed() int {
	return s.Succeeded + s.Skipped + s.Trash + s.Failed
}

// Recorder receives one journal entry per processed id.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// ProgressFunc is called every ProgressEvery processed ids.
type ProgressFunc func(processed int, stats Stats)

// PipelineOptions configures a Pipeline. Zero values select the defaults.
type PipelineOptions struct {
	Version       models.SchemaVersion
	AgeGateRetry  bool
	ProgressEvery int
	RunID         string
	Recorder      Recorder
	OnProgress    ProgressFunc
	Logger        *logger.Logger
}

// Pipeline runs ids through gate, fetch, classify, extract, validate and save.
// Ids are processed strictly one after another.
type Pipeline struct {
	fetcher    Fetcher
	parser     *parsers.Parser
	store      *store.FileStore
	classifier *validator.Classifier
	validity   *validator.Stats
	opts       PipelineOptions
	logger     *logger.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(fetcher Fetcher, parser *parsers.Parser, fs *store.FileStore, classifier *validator.Classifier, opts PipelineOptions) *Pipeline {
	if opts.Version == "" {
		opts.Version = models.Latest()
	}

	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 50
	}

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	if opts.RunID != "" {
		log = log.With("run_id", opts.RunID)
	}

	return &Pipeline{
		fetcher:    fetcher,
		parser:     parser,
		store:      fs,
		classifier: classifier,
		validity:   &validator.Stats{},
		opts:       opts,
		logger:     log,
	}
}

// Run processes ids in order. Fetch, block and age-gate failures are counted
// and the run continues; a storage error or cancellation stops it and is
// returned along with the stats so far.
func (p *Pipeline) Run(ctx context.Context, ids []int) (Stats, error) {
	stats := Stats{Requested: len(ids)}
	p.validity = &validator.Stats{}

	for idx, appID := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		outcome, detail, err := p.process(ctx, appID)
		if err != nil {
			return stats, err
		}

		switch outcome {
		case journal.OutcomeSucceeded:
			stats.Succeeded++
		case journal.OutcomeSkipped:
			stats.Skipped++
		case journal.OutcomeTrash:
			stats.Trash++
		case journal.OutcomeFailed:
			stats.Failed++
		}

		p.record(ctx, appID, outcome, detail)

		if (idx+1)%p.opts.ProgressEvery == 0 && p.opts.OnProgress != nil {
			p.opts.OnProgress(idx+1, stats)
		}
	}

	return stats, nil
}

func (p *Pipeline) process(ctx context.Context, appID int) (string, string, error) {
	log := p.logger.With("app_id", appID)

	exists, err := p.store.Exists(appID)
	if err != nil {
		return "", "", err
	}

	if exists {
		log.Info("skipping, already have data")

		return journal.OutcomeSkipped, "", nil
	}

	log.Info("scraping")

	record, notes, err := p.scrape(ctx, appID)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}

		log.Warn("scrape failed", "error", err)

		return journal.OutcomeFailed, err.Error(), nil
	}

	for _, note := range notes {
		log.Debug("requirements note", "note", note)
	}

	result := p.classifier.Classify(record)
	p.validity.Add(result)

	if !result.Valid {
		log.Info("trash data detected", "missing", result.Missing)

		if err := p.store.SaveTrash(models.NewTrashMarker(record.Version, appID)); err != nil {
			return "", "", fmt.Errorf("save trash marker for %d: %w", appID, err)
		}

		return journal.OutcomeTrash, fmt.Sprintf("missing %v", result.Missing), nil
	}

	if err := p.store.SaveRecord(record); err != nil {
		return "", "", fmt.Errorf("save record %d: %w", appID, err)
	}

	return journal.OutcomeSucceeded, "", nil
}

// scrape fetches appID and extracts a record, retrying once with age
// verification when the first page is age gated.
func (p *Pipeline) scrape(ctx context.Context, appID int) (*models.GameRecord, []string, error) {
	res, err := p.fetcher.Fetch(ctx, FetchRequest{AppID: appID})
	if err != nil {
		return nil, nil, err
	}

	record, notes, err := p.Extract(res)
	if errors.Is(err, ErrAgeGated) && p.opts.AgeGateRetry {
		p.logger.Debug("age gated, retrying with verification", "app_id", appID)

		res, err = p.fetcher.Fetch(ctx, FetchRequest{AppID: appID, AgeVerified: true})
		if err != nil {
			return nil, nil, err
		}

		return p.Extract(res)
	}

	return record, notes, err
}

// Validity returns the classification counters of the latest Run: how many
// fetched records were kept or trashed and which fields the trashed ones lacked.
func (p *Pipeline) Validity() validator.Snapshot {
	return p.validity.Snapshot()
}

// Extract classifies a fetched page and builds a record of the pipeline's
// schema version from it.
func (p *Pipeline) Extract(res *FetchResult) (*models.GameRecord, []string, error) {
	doc, err := parsers.NewDocument(res.HTML)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	switch parsers.ClassifyPage(doc) {
	case parsers.PageBlocked:
		return nil, nil, fmt.Errorf("%w: %s", ErrBlocked, res.URL)
	case parsers.PageAgeGated:
		return nil, nil, fmt.Errorf("%w: %s", ErrAgeGated, res.URL)
	case parsers.PageOK:
	}

	record, notes := p.parser.ExtractRecord(doc, parsers.ExtractOptions{
		AppID:           res.AppID,
		URL:             res.URL,
		Version:         p.opts.Version,
		AgeGateBypassed: res.AgeGateBypassed,
		HTML:            res.HTML,
	})

	return record, notes, nil
}

func (p *Pipeline) record(ctx context.Context, appID int, outcome, detail string) {
	if p.opts.Recorder == nil {
		return
	}

	err := p.opts.Recorder.Record(ctx, journal.Entry{
		RunID:   p.opts.RunID,
		AppID:   appID,
		Outcome: outcome,
		Detail:  detail,
	})
	if err != nil {
		p.logger.Warn("journal write failed", "app_id", appID, "error", err)
	}
}
