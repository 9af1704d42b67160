// Package pipeline sequences verse acquisition, content generation and
// persistence into the single "produce today's word of day" operation.
// It is the only place that decides source fallback order and the only
// place that makes a failure fatal for the whole run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"palavra/internal/devotional"
	"palavra/internal/store"
	"palavra/internal/verse"
)

// ErrRunInProgress is returned when a run is requested while another is
// still executing. The upsert is not safe against interleaved writers on
// the same (language, date) key, so runs are serialized.
var ErrRunInProgress = errors.New("word of day run already in progress")

// Store is the persistence collaborator.
type Store interface {
	FindLanguage(ctx context.Context, code string) (*store.Language, error)
	FindWordOfDay(ctx context.Context, languageID int64, day time.Time) (*store.WordOfDay, error)
	Insert(ctx context.Context, rec *store.WordOfDay) error
	UpdateContent(ctx context.Context, id int64, word, verseText string, c devotional.Content) error
}

// Scraper is the fast-path verse source.
type Scraper interface {
	FetchVerse(ctx context.Context) (*verse.Verse, error)
}

// Capturer renders the source page to a screenshot.
type Capturer interface {
	CapturePage(ctx context.Context, url string) (string, error)
	Prune(keep int) error
}

// VisionExtractor reads a verse out of a screenshot.
type VisionExtractor interface {
	ExtractFromImage(ctx context.Context, path string) (*verse.Verse, error)
}

// Selector picks a verse when every other source failed.
type Selector interface {
	SelectVerse(ctx context.Context, day time.Time) (*verse.Verse, error)
}

// Generator produces the devotional bundle.
type Generator interface {
	Generate(ctx context.Context, v *verse.Verse) (*devotional.Content, error)
}

// Config holds pipeline settings.
type Config struct {
	SourceURL    string
	LanguageCode string
	Retain       int
	Location     *time.Location
}

// RunStatus is the observable outcome of the most recent run.
type RunStatus struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Success    bool      `json:"success"`
	Source     string    `json:"source,omitempty"` // scrape, vision or generated
	Reference  string    `json:"reference,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Pipeline owns one day's content production.
type Pipeline struct {
	cfg       Config
	store     Store
	scraper   Scraper
	capturer  Capturer
	vision    VisionExtractor
	selector  Selector
	generator Generator
	log       *zap.Logger

	sem *semaphore.Weighted
	now func() time.Time

	mu   sync.Mutex
	last *RunStatus
}

// New wires the pipeline from its collaborators.
func New(cfg Config, st Store, scraper Scraper, capturer Capturer, vision VisionExtractor, selector Selector, generator Generator, log *zap.Logger) *Pipeline {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Retain <= 0 {
		cfg.Retain = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		scraper:   scraper,
		capturer:  capturer,
		vision:    vision,
		selector:  selector,
		generator: generator,
		log:       log,
		sem:       semaphore.NewWeighted(1),
		now:       time.Now,
	}
}

// RunToday produces or refreshes today's record. Either the full pipeline
// completes and exactly one record reflects today's content, or it
// returns an error and nothing was written for today.
func (p *Pipeline) RunToday(ctx context.Context) error {
	if !p.sem.TryAcquire(1) {
		return ErrRunInProgress
	}
	defer p.sem.Release(1)

	status := RunStatus{StartedAt: p.now()}
	err := p.run(ctx, &status)
	status.FinishedAt = p.now()
	status.Success = err == nil
	if err != nil {
		status.Error = err.Error()
	}

	p.mu.Lock()
	p.last = &status
	p.mu.Unlock()
	return err
}

// Status reports the outcome of the most recent run, if any.
func (p *Pipeline) Status() (RunStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return RunStatus{}, false
	}
	return *p.last, true
}

func (p *Pipeline) run(ctx context.Context, status *RunStatus) error {
	day := midnight(p.now().In(p.cfg.Location))

	lang, err := p.store.FindLanguage(ctx, p.cfg.LanguageCode)
	if err != nil {
		return err
	}

	existing, err := p.store.FindWordOfDay(ctx, lang.ID, day)
	if err != nil {
		return err
	}

	// The verse is re-acquired even when a record exists: re-running is
	// how an operator forces a content refresh.
	v, source, err := p.acquireVerse(ctx, day)
	if err != nil {
		return err
	}
	status.Source = source
	status.Reference = v.Reference
	p.log.Info("verse acquired",
		zap.String("source", source),
		zap.String("reference", v.Reference))

	content, err := p.generator.Generate(ctx, v)
	if err != nil {
		return err
	}

	if existing != nil {
		if err := p.store.UpdateContent(ctx, existing.ID, v.Reference, v.Text, *content); err != nil {
			return err
		}
		p.log.Info("word of day updated",
			zap.Time("date", day),
			zap.String("language", lang.Code),
			zap.Int64("id", existing.ID))
		return nil
	}

	rec := &store.WordOfDay{
		LanguageID: lang.ID,
		Date:       day,
		Word:       v.Reference,
		Verse:      v.Text,
		Content:    *content,
	}
	if err := p.store.Insert(ctx, rec); err != nil {
		return err
	}
	p.log.Info("word of day created",
		zap.Time("date", day),
		zap.String("language", lang.Code),
		zap.Int64("id", rec.ID))
	return nil
}

// verseSource is one tier of the fallback chain.
type verseSource struct {
	name    string
	acquire func(ctx context.Context) (*verse.Verse, error)
}

// acquireVerse folds over the ordered source list, stopping at the first
// success. Only when every tier fails does the run fail.
func (p *Pipeline) acquireVerse(ctx context.Context, day time.Time) (*verse.Verse, string, error) {
	sources := []verseSource{
		{name: "scrape", acquire: p.scraper.FetchVerse},
		{name: "vision", acquire: p.captureAndExtract},
		{name: "generated", acquire: func(ctx context.Context) (*verse.Verse, error) {
			return p.selector.SelectVerse(ctx, day)
		}},
	}

	var lastErr error
	for _, src := range sources {
		v, err := src.acquire(ctx)
		if err == nil {
			return v, src.name, nil
		}
		lastErr = err
		p.log.Warn("verse source failed",
			zap.String("source", src.name),
			zap.Error(err))
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
	}
	return nil, "", fmt.Errorf("all verse sources failed: %w", lastErr)
}

// captureAndExtract is the vision tier: screenshot the source page, run
// the vision extractor, then sweep old screenshots.
func (p *Pipeline) captureAndExtract(ctx context.Context) (*verse.Verse, error) {
	path, err := p.capturer.CapturePage(ctx, p.cfg.SourceURL)
	if err != nil {
		return nil, err
	}

	v, extractErr := p.vision.ExtractFromImage(ctx, path)

	if err := p.capturer.Prune(p.cfg.Retain); err != nil {
		p.log.Warn("screenshot prune", zap.Error(err))
	}

	return v, extractErr
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
