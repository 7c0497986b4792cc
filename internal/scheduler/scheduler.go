// Package scheduler runs the server's periodic maintenance jobs in-process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/codyseavey/card-nexus/internal/importer"
	"github.com/codyseavey/card-nexus/internal/services"
)

const (
	JobExpireListings = "expire-listings"
	JobCatalogSync    = "catalog-sync"

	DefaultExpireInterval = time.Hour
)

// Config selects which jobs are registered. CatalogSync is only scheduled
// when both Sync is set and SyncInterval is positive.
type Config struct {
	Listings       *services.ListingService
	Catalog        *services.CatalogService
	ExpireInterval time.Duration

	Sync         *importer.APISync
	SyncOptions  importer.APISyncOptions
	SyncInterval time.Duration
}

type Scheduler struct {
	sched  gocron.Scheduler
	cfg    Config
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config, log *zap.Logger) (*Scheduler, error) {
	if cfg.ExpireInterval <= 0 {
		cfg.ExpireInterval = DefaultExpireInterval
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, cfg: cfg, log: log, ctx: ctx, cancel: cancel}

	if cfg.Listings != nil {
		if err := s.add(JobExpireListings, cfg.ExpireInterval, s.ExpireListings); err != nil {
			cancel()
			return nil, err
		}
	}
	if cfg.Sync != nil && cfg.SyncInterval > 0 {
		if err := s.add(JobCatalogSync, cfg.SyncInterval, s.SyncCatalog); err != nil {
			cancel()
			return nil, err
		}
	}
	return s, nil
}

// add registers a singleton job: a run that is still going when the next
// one is due causes that next run to be skipped.
func (s *Scheduler) add(name string, every time.Duration, run func(context.Context) error) error {
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("Scheduled job panicked", zap.String("job", name), zap.Any("panic", r))
			}
		}()
		start := time.Now()
		if err := run(s.ctx); err != nil {
			s.log.Error("Scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.log.Debug("Scheduled job finished", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
	}

	_, err := s.sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Info("Scheduled job", zap.String("job", name), zap.Duration("every", every))
	return nil
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	var names []string
	for _, j := range s.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.sched.Shutdown()
}

// ExpireListings marks overdue listings expired.
func (s *Scheduler) ExpireListings(ctx context.Context) error {
	_, err := s.cfg.Listings.ExpireStale(ctx)
	return err
}

// SyncCatalog pulls the card API into the catalog and refreshes the card
// count gauge.
func (s *Scheduler) SyncCatalog(ctx context.Context) error {
	run, err := s.cfg.Sync.Run(ctx, s.cfg.SyncOptions)
	if err != nil {
		return err
	}
	s.log.Info("Catalog sync finished",
		zap.Int("created", run.Total.Created),
		zap.Int("updated", run.Total.Updated),
		zap.Int("skipped", run.Total.Skipped),
		zap.Int("invalid", run.Total.Invalid),
		zap.Duration("elapsed", run.Elapsed))

	if s.cfg.Catalog != nil {
		if _, err := s.cfg.Catalog.RefreshCardCount(ctx); err != nil {
			return fmt.Errorf("refresh card count: %w", err)
		}
	}
	return nil
}
