package calsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler periodically resyncs every parent's calendars
type Scheduler struct {
	orch    *Orchestrator
	courses CourseStore
	logger  *log.Entry
	cron    *cron.Cron

	mu  sync.Mutex
	ctx context.Context
}

// NewScheduler parses spec as a standard 5 field cron expression, an empty
// spec gives a scheduler which never fires
func NewScheduler(orch *Orchestrator, courses CourseStore, spec string, logger *log.Entry) (*Scheduler, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	s := &Scheduler{
		orch:    orch,
		courses: courses,
		logger:  logger.WithField("component", "resync"),
		ctx:     context.Background(),
	}
	if spec == "" {
		return s, nil
	}

	cronLogger := cron.PrintfLogger(s.logger)
	s.cron = cron.New(
		cron.WithLocation(orch.loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		cron.WithLogger(cronLogger),
	)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid resync schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Enabled() bool {
	return s.cron != nil
}

// Start runs the schedule in the background until Stop, ctx is handed to
// every run
func (s *Scheduler) Start(ctx context.Context) {
	if s.cron == nil {
		return
	}
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop returns a context which is done once a running resync finishes
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.cron.Stop()
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	synced, failed := s.RunOnce(ctx)
	s.logger.WithFields(log.Fields{"synced": synced, "failed": failed}).Info("finished resync")
}

// RunOnce syncs every parent one after another, each parent's students are
// still synced in parallel
func (s *Scheduler) RunOnce(ctx context.Context) (int, int) {
	parents, err := s.courses.ListParents(ctx)
	if err != nil {
		s.logger.Errorf("could not list parents: %v", err)
		return 0, 0
	}
	synced, failed := 0, 0
	for _, parent := range parents {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.orch.SyncAll(ctx, parent.ID, parent.Email); err != nil {
			s.logger.WithField("user", parent.ID).Warnf("resync failed: %v", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed
}
