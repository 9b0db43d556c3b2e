package folio

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/eringen/folio/content"
)

// Revalidator periodically refreshes every content type in the background,
// so page requests rarely wait on the CMS.
type Revalidator struct {
	cron  *cron.Cron
	cache *ContentCache
	types []string
	log   *zap.Logger
}

// NewRevalidator schedules a refresh of all content types every interval.
// A run still in progress when the next one is due is skipped.
func NewRevalidator(cache *ContentCache, interval time.Duration, log *zap.Logger) (*Revalidator, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("folio: revalidate interval must be positive, got %s", interval)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("module", "revalidator"))
	cronLog := cron.PrintfLogger(zap.NewStdLog(log))
	r := &Revalidator{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		cache: cache,
		types: content.AllTypes,
		log:   log,
	}
	if _, err := r.cron.AddFunc(fmt.Sprintf("@every %s", interval), r.run); err != nil {
		return nil, fmt.Errorf("folio: schedule revalidation: %w", err)
	}
	return r, nil
}

func (r *Revalidator) run() {
	if err := r.RunOnce(context.Background()); err != nil {
		r.log.Warn("revalidation incomplete", zap.Error(err))
	}
}

// RunOnce refreshes every content type now.
func (r *Revalidator) RunOnce(ctx context.Context) error {
	start := time.Now()
	err := r.cache.RefreshAll(ctx, r.types)
	r.log.Debug("revalidated", zap.Int("types", len(r.types)), zap.Duration("took", time.Since(start)))
	return err
}

// Schedule adds a maintenance job on a cron spec such as "@daily".
func (r *Revalidator) Schedule(spec string, job func()) error {
	if _, err := r.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("folio: schedule %q: %w", spec, err)
	}
	return nil
}

// Start begins the schedule.
func (r *Revalidator) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Revalidator) Stop() {
	<-r.cron.Stop().Done()
}
