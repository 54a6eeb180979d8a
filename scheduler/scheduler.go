package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"houses_scraper/config"
	"houses_scraper/logging"
	"houses_scraper/models"
)

const source = "scheduler"

// ErrNoSchedule is returned by Start when neither a cron expression nor an
// interval is configured.
var ErrNoSchedule = errors.New("no schedule configured")

// Job is one crawl.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron expression or a fixed interval. A tick that
// arrives while the previous run is still going is skipped.
type Scheduler struct {
	cfg     config.SchedulerConfig
	job     Job
	log     logging.LogFunc
	cron    *cron.Cron
	ticker  *time.Ticker
	stopCh  chan struct{}
	running sync.Mutex
	wg      sync.WaitGroup
	once    sync.Once
}

func New(cfg config.SchedulerConfig, job Job, log logging.LogFunc) *Scheduler {
	if log == nil {
		log = logging.NoOp
	}
	return &Scheduler{
		cfg:    cfg,
		job:    job,
		log:    log,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Cron != "" {
		s.log.Logf(models.LogLevelInfo, source, "starting scheduler with cron: %s", s.cfg.Cron)
		_, err := s.cron.AddFunc(s.cfg.Cron, func() { s.TriggerNow(ctx) })
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
		return nil
	}

	if s.cfg.Interval > 0 {
		s.log.Logf(models.LogLevelInfo, source, "starting scheduler with interval: %s", s.cfg.Interval)
		s.ticker = time.NewTicker(s.cfg.Interval)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.TriggerNow(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}

	return ErrNoSchedule
}

// TriggerNow runs the job unless a run is already in progress. It reports
// whether the job ran.
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	if !s.running.TryLock() {
		s.log(models.LogLevelWarn, source, "previous run still in progress, skipping")
		return false
	}
	defer s.running.Unlock()

	if err := s.job(ctx); err != nil {
		s.log.Logf(models.LogLevelError, source, "scheduled run error: %v", err)
	}
	return true
}

// Stop halts future ticks and waits for a run in progress to return.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		<-s.cron.Stop().Done()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.wg.Wait()
		s.running.Lock()
		s.running.Unlock()
	})
}
